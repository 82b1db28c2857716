package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIndexBuilder is a mock implementation of IndexBuilder
type MockIndexBuilder struct {
	mock.Mock
}

func (m *MockIndexBuilder) IndexReady() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockIndexBuilder) Warm(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

type countingProcessor struct {
	calls atomic.Int32
}

func (p *countingProcessor) ProcessJobs(ctx context.Context) error {
	p.calls.Add(1)
	return nil
}

func TestWorker_RunsImmediately(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return processor.calls.Load() > 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), processor.calls.Load())
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("transient"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestIndexWarmer_AlreadyBuilt(t *testing.T) {
	builder := new(MockIndexBuilder)
	builder.On("IndexReady").Return(true)

	err := NewIndexWarmer(builder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	builder.AssertNotCalled(t, "Warm", mock.Anything)
}

func TestIndexWarmer_Builds(t *testing.T) {
	builder := new(MockIndexBuilder)
	builder.On("IndexReady").Return(false)
	builder.On("Warm", mock.Anything).Return(nil)

	err := NewIndexWarmer(builder).ProcessJobs(context.Background())

	assert.NoError(t, err)
	builder.AssertExpectations(t)
}

func TestIndexWarmer_BuildFailure(t *testing.T) {
	builder := new(MockIndexBuilder)
	builder.On("IndexReady").Return(false)
	builder.On("Warm", mock.Anything).Return(errors.New("provider down"))

	err := NewIndexWarmer(builder).ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}
