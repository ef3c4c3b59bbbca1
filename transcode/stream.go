package transcode

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAlreadyAttached is returned when a PCMStream is attached twice.
var ErrAlreadyAttached = errors.New("transcode: stream already attached")

// PCMStream replays decoded PCM as a live source: chunks are delivered from
// a goroutine at the pace they would arrive from a microphone.
type PCMStream struct {
	pcm        []float64
	sampleRate int
	chunkSize  int
	paced      bool

	mu       sync.Mutex
	attached bool
	stop     chan struct{}
	done     chan struct{}
	position int
}

// StreamOption configures a PCMStream
type StreamOption func(*PCMStream)

// WithPacing controls real-time pacing. Without it every chunk is delivered
// immediately after Attach.
func WithPacing(paced bool) StreamOption {
	return func(s *PCMStream) { s.paced = paced }
}

// NewPCMStream creates a paced stream over audio, delivering chunkSize
// samples at a time. A non-positive chunkSize delivers one 60th of a second.
func NewPCMStream(audio *AudioData, chunkSize int, opts ...StreamOption) *PCMStream {
	if chunkSize <= 0 {
		chunkSize = max(audio.SampleRate/60, 1)
	}
	s := &PCMStream{
		pcm:        audio.PCM,
		sampleRate: audio.SampleRate,
		chunkSize:  chunkSize,
		paced:      true,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleRate returns the PCM sample rate
func (s *PCMStream) SampleRate() int { return s.sampleRate }

// Attach starts delivering chunks to sink from a new goroutine. sink must not
// call Detach.
func (s *PCMStream) Attach(sink func(samples []float64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return ErrAlreadyAttached
	}
	if s.sampleRate <= 0 {
		return fmt.Errorf("transcode: invalid sample rate %d", s.sampleRate)
	}
	s.attached = true
	s.stop = make(chan struct{})

	go s.run(sink, s.stop)
	return nil
}

func (s *PCMStream) run(sink func([]float64), stop <-chan struct{}) {
	defer close(s.done)

	var tick <-chan time.Time
	if s.paced {
		interval := time.Duration(s.chunkSize) * time.Second / time.Duration(s.sampleRate)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for start := 0; start < len(s.pcm); start += s.chunkSize {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}

		end := min(start+s.chunkSize, len(s.pcm))
		sink(s.pcm[start:end])

		s.mu.Lock()
		s.position = end
		s.mu.Unlock()
	}
}

// Detach stops delivery and waits for the delivery goroutine to exit.
func (s *PCMStream) Detach() {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	s.mu.Unlock()

	<-s.done
}

// Done is closed once the last chunk was delivered or the stream was detached.
func (s *PCMStream) Done() <-chan struct{} { return s.done }

// Position returns the number of samples delivered so far
func (s *PCMStream) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Duration returns the length of the underlying audio
func (s *PCMStream) Duration() time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.pcm)) * time.Second / time.Duration(s.sampleRate)
}
