package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample_DegradesGPUToNilOnError(t *testing.T) {
	s := &Sampler{gpuQuery: func(ctx context.Context) (*float64, error) {
		return nil, errors.New("no gpu present")
	}}

	sample := s.Sample(context.Background())
	assert.Nil(t, sample.GPU)
}

func TestSample_PopulatesGPUWhenAvailable(t *testing.T) {
	s := &Sampler{gpuQuery: func(ctx context.Context) (*float64, error) {
		v := 42.0
		return &v, nil
	}}

	sample := s.Sample(context.Background())
	require.NotNil(t, sample.GPU)
	assert.Equal(t, 42.0, *sample.GPU)
}

func TestSample_NeverFails(t *testing.T) {
	s := New()
	// Sample must not panic or error even on a host without a GPU.
	_ = s.Sample(context.Background())
}

func TestHardwareInfo_NeverFails(t *testing.T) {
	s := New()
	info := s.HardwareInfo(context.Background())
	assert.NotEmpty(t, info.OSArch)
}
