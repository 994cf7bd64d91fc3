package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"slices"

	"github.com/voidfemme/visualsynth/pkg/music"
)

// WAVWriter writes audio to WAV format (16-bit PCM or 32-bit float)
type WAVWriter struct {
	writer      io.Writer
	sampleRate  int
	channels    int
	format      SampleFormat
	scratch     []byte
	dataWritten int
}

// NewWAVWriter creates a WAV writer. WAV has no unsigned 16-bit encoding,
// so FormatU16 is rejected.
func NewWAVWriter(w io.Writer, sampleRate, channels int, format SampleFormat) (*WAVWriter, error) {
	if format != FormatS16 && format != FormatF32 {
		return nil, fmt.Errorf("wav: %w: %s", ErrUnsupportedFormat, format)
	}
	return &WAVWriter{
		writer:     w,
		sampleRate: sampleRate,
		channels:   channels,
		format:     format,
	}, nil
}

// WriteHeader writes the WAV header for dataSize bytes of samples
func (w *WAVWriter) WriteHeader(dataSize int) error {
	bps := w.format.BytesPerSample()
	formatTag := uint16(1) // PCM
	if w.format == FormatF32 {
		formatTag = 3 // IEEE float
	}

	var h bytes.Buffer
	h.WriteString("RIFF")
	binary.Write(&h, binary.LittleEndian, uint32(dataSize+36))
	h.WriteString("WAVE")

	// fmt chunk
	h.WriteString("fmt ")
	byteRate := w.sampleRate * w.channels * bps
	blockAlign := w.channels * bps
	binary.Write(&h, binary.LittleEndian, uint32(16))           // Chunk size
	binary.Write(&h, binary.LittleEndian, formatTag)            // Format
	binary.Write(&h, binary.LittleEndian, uint16(w.channels))   // Channels
	binary.Write(&h, binary.LittleEndian, uint32(w.sampleRate)) // Sample rate
	binary.Write(&h, binary.LittleEndian, uint32(byteRate))     // Byte rate
	binary.Write(&h, binary.LittleEndian, uint16(blockAlign))   // Block align
	binary.Write(&h, binary.LittleEndian, uint16(bps*8))        // Bits per sample

	// data chunk header
	h.WriteString("data")
	binary.Write(&h, binary.LittleEndian, uint32(dataSize))

	_, err := w.writer.Write(h.Bytes())
	return err
}

// WriteBuffer encodes and writes one planar block
func (w *WAVWriter) WriteBuffer(buf *AudioBuffer) error {
	n, err := writeEncoded(w.writer, &w.scratch, buf, w.format)
	w.dataWritten += n
	return err
}

// DataWritten returns the number of sample bytes written so far
func (w *WAVWriter) DataWritten() int { return w.dataWritten }

func writeEncoded(wr io.Writer, scratch *[]byte, buf *AudioBuffer, f SampleFormat) (int, error) {
	need := buf.NumFrames() * buf.NumChannels() * f.BytesPerSample()
	if cap(*scratch) < need {
		*scratch = make([]byte, need)
	}
	b := (*scratch)[:need]
	n, err := EncodeInterleaved(b, buf, f)
	if err != nil {
		return 0, err
	}
	return wr.Write(b[:n])
}

// TimedEvent is an event applied at a point on the synth clock
type TimedEvent struct {
	At    float64 // seconds
	Event music.NoteEvent
}

// RenderJob renders a synth offline for a fixed duration
type RenderJob struct {
	Synth     *Synth
	Seconds   float64
	Events    []TimedEvent
	BlockSize int
	Tap       func(buf *AudioBuffer) // sees every shaped block, may be nil
}

// Frames returns the total number of frames the job renders
func (j *RenderJob) Frames() int {
	return int(j.Seconds * float64(j.Synth.SampleRate()))
}

// Run renders the job block by block. Blocks are split at event times so
// every event lands on the sample it was scheduled for.
func (j *RenderJob) Run(sink func(buf *AudioBuffer) error) error {
	sr := float64(j.Synth.SampleRate())
	total := j.Frames()
	block := j.BlockSize
	if block <= 0 {
		block = 512
	}
	events := slices.Clone(j.Events)
	slices.SortStableFunc(events, func(a, b TimedEvent) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})

	buf := NewAudioBuffer(j.Synth.Channels(), block)
	next := 0
	for done := 0; done < total; {
		for next < len(events) && int(events[next].At*sr) <= done {
			j.Synth.Notes().HandleEvent(events[next].Event)
			next++
		}
		n := min(block, total-done)
		if next < len(events) {
			if until := int(events[next].At*sr) - done; until < n {
				n = until
			}
		}
		buf.Resize(n)
		if err := j.Synth.Render(buf); err != nil {
			return fmt.Errorf("render at frame %d: %w", done, err)
		}
		if j.Tap != nil {
			j.Tap(buf)
		}
		if err := sink(buf); err != nil {
			return err
		}
		done += n
	}
	return nil
}

// ExportWAV renders the job into a WAV stream
func ExportWAV(w io.Writer, job *RenderJob, format SampleFormat) error {
	ch := job.Synth.Channels()
	wav, err := NewWAVWriter(w, job.Synth.SampleRate(), ch, format)
	if err != nil {
		return err
	}
	dataSize := job.Frames() * ch * format.BytesPerSample()
	if err := wav.WriteHeader(dataSize); err != nil {
		return fmt.Errorf("wav header: %w", err)
	}
	return job.Run(wav.WriteBuffer)
}

// ExportRaw renders the job as headerless interleaved PCM
func ExportRaw(w io.Writer, job *RenderJob, format SampleFormat) error {
	var scratch []byte
	return job.Run(func(buf *AudioBuffer) error {
		_, err := writeEncoded(w, &scratch, buf, format)
		return err
	})
}
