package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/registry"
	"firestige.xyz/canframe/internal/source/hexline"
)

// MockSink records frames and can be told to fail.
type MockSink struct {
	mock.Mock
	mu     sync.Mutex
	frames []core.DecodedFrame
}

func (m *MockSink) Write(ctx context.Context, frame core.DecodedFrame) error {
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	return m.Called(ctx, frame).Error(0)
}

func (m *MockSink) Close() error { return nil }

func (m *MockSink) Frames() []core.DecodedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.DecodedFrame(nil), m.frames...)
}

// sliceSource yields fixed frames, then io.EOF.
type sliceSource struct {
	frames []core.RawFrame
	err    error // returned instead of io.EOF when set
}

func (s *sliceSource) Next(ctx context.Context) (core.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return core.RawFrame{}, err
	}
	if len(s.frames) == 0 {
		if s.err != nil {
			return core.RawFrame{}, s.err
		}
		return core.RawFrame{}, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

var testRegistry = registry.Map{0x1234: "EngineSpeed", 0x0567: "VehicleStatus"}

func newSink() *MockSink {
	s := new(MockSink)
	s.On("Write", mock.Anything, mock.Anything).Return(nil)
	return s
}

func TestPipeline_BasicFlow(t *testing.T) {
	src := hexline.FromStrings("test", []string{
		"12 34 DE AD",
		"# comment",
		"05 67",
		"12",
		"99 99 01",
	})
	s := newSink()

	p, err := New(Config{
		Source:   src,
		Registry: StaticRegistry{Registry: testRegistry},
		Sink:     s,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID())

	stats, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Frames: 4, Decoded: 2, TooShort: 1, Unknown: 1}, stats)
	assert.Equal(t, uint64(2), stats.Errors())

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, core.Message{ID: 0x1234, Payload: []byte{0xDE, 0xAD}}, frames[0].Message)
	assert.Equal(t, "EngineSpeed", frames[0].Name)
	assert.Equal(t, "test:1", frames[0].Source)
	assert.Equal(t, core.Message{ID: 0x0567, Payload: []byte{}}, frames[1].Message)
	assert.Equal(t, "VehicleStatus", frames[1].Name)
}

func TestPipeline_StopOnError(t *testing.T) {
	src := hexline.FromStrings("test", []string{"12 34", "99 99", "05 67"})
	s := newSink()

	p, err := NewBuilder().
		WithSource(src).
		WithStaticRegistry(testRegistry).
		WithSink(s).
		WithOnError(config.OnErrorStop).
		Build()
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPipelineStopped)
	assert.ErrorIs(t, err, core.ErrUnknownIdentifier)
	assert.Equal(t, "canframe: pipeline stopped: test:2: unknown identifier 0x9999", err.Error())
	id, ok := core.UnknownID(err)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x9999), id)

	assert.Equal(t, Stats{Frames: 2, Decoded: 1, Unknown: 1}, stats)
	assert.Len(t, s.Frames(), 1)
}

func TestPipeline_PayloadCeiling(t *testing.T) {
	dec, err := decoder.New(decoder.Layout{IDBytes: 2, MaxPayload: 2})
	require.NoError(t, err)

	src := hexline.FromStrings("test", []string{"12 34 01 02 03", "12 34 01 02"})
	p, err := New(Config{
		Source:   src,
		Decoder:  dec,
		Registry: StaticRegistry{Registry: testRegistry},
		Sink:     newSink(),
	})
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Frames: 2, Decoded: 1, PayloadTooLong: 1}, stats)
}

func TestPipeline_NonDecodeErrorCountsAsOther(t *testing.T) {
	failing := decoder.FrameDecoderFunc(func([]byte, core.Registry) (core.Message, error) {
		return core.Message{}, errors.New("boom")
	})
	p, err := New(Config{
		Source:   hexline.FromStrings("test", []string{"12 34"}),
		Decoder:  failing,
		Registry: StaticRegistry{},
		Sink:     newSink(),
	})
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Other)
}

func TestPipeline_SinkErrorIsFatal(t *testing.T) {
	s := new(MockSink)
	s.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	p, err := New(Config{
		Source:   hexline.FromStrings("test", []string{"12 34", "12 34"}),
		Registry: StaticRegistry{Registry: testRegistry},
		Sink:     s,
	})
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrPipelineStopped)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, uint64(1), stats.SinkErrors)
	s.AssertNumberOfCalls(t, "Write", 1)
}

func TestPipeline_SourceErrorIsFatal(t *testing.T) {
	boom := errors.New("device gone")
	src := &sliceSource{
		frames: []core.RawFrame{{Data: []byte{0x12, 0x34}, Source: "bus:1"}},
		err:    boom,
	}
	p, err := New(Config{Source: src, Registry: StaticRegistry{Registry: testRegistry}, Sink: newSink()})
	require.NoError(t, err)

	stats, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), stats.Decoded)
}

func TestPipeline_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &sliceSource{frames: []core.RawFrame{{Data: []byte{0x12, 0x34}}}}
	s := newSink()
	p, err := New(Config{Source: src, Registry: StaticRegistry{Registry: testRegistry}, Sink: s})
	require.NoError(t, err)

	stats, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), stats.Frames)
	assert.Empty(t, s.Frames())
}

func TestPipeline_SnapshotPerFrame(t *testing.T) {
	store := registry.NewStore(registry.Map{0x1234: "Old"})

	s := new(MockSink)
	s.On("Write", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		store.Replace(registry.Map{0x1234: "New"})
	})

	src := hexline.FromStrings("test", []string{"12 34", "12 34"})
	p, err := New(Config{Source: src, Registry: store, Sink: s, Logger: nil})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	frames := s.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, "Old", frames[0].Name)
	assert.Equal(t, "New", frames[1].Name)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	_, err = New(Config{
		Source:   hexline.FromStrings("test", nil),
		Registry: StaticRegistry{},
		Sink:     newSink(),
		OnError:  "retry",
	})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestBuilder_FluentAPI(t *testing.T) {
	p, err := NewBuilder().
		WithID("run-1").
		WithSource(hexline.FromStrings("test", nil)).
		WithDecoder(decoder.FrameDecoderFunc(decoder.Decode)).
		WithRegistry(registry.NewStore(nil)).
		WithSink(newSink()).
		WithOnError(config.OnErrorSkip).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "run-1", p.ID())

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestStats_String(t *testing.T) {
	s := Stats{Frames: 5, Decoded: 2, TooShort: 1, Unknown: 2}
	assert.Equal(t, "frames=5 decoded=2 rejected=3 (too_short=1 unknown=2 payload_too_long=0 other=0)", s.String())
}

func BenchmarkPipeline(b *testing.B) {
	frames := make([]core.RawFrame, b.N)
	for i := range frames {
		frames[i] = core.RawFrame{Data: []byte{0x12, 0x34, 0xDE, 0xAD}, Timestamp: time.Now()}
	}
	s := newSink()
	p, _ := New(Config{Source: &sliceSource{frames: frames}, Registry: StaticRegistry{Registry: testRegistry}, Sink: s})
	b.ResetTimer()
	_, _ = p.Run(context.Background())
}
