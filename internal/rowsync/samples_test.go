package rowsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSamples(t *testing.T) {
	f := newFake()
	s := New(f, nil)
	n, err := s.LoadSamples(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(Samples), n)
	assert.Equal(t, 8, s.Len())

	rows := s.Rows()
	for i, sample := range Samples {
		assert.Equal(t, sample.Description, rows[i].Description)
		assert.Equal(t, SampleFileName, rows[i].FileName)
		assert.True(t, rows[i].Editable())
	}
	assert.Equal(t, 8, f.called("update"))
}

func TestLoadSamplesUploadFailureKeepsRows(t *testing.T) {
	f := newFake()
	f.uploadErr = errors.New("upload file: refused")
	s := New(f, nil)
	n, err := s.LoadSamples(context.Background())
	require.Error(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 8, s.Len())
	assert.Equal(t, 0, f.called("update"))
}

func TestLoadSamplesWithoutPDF(t *testing.T) {
	f := newFake()
	f.sampleErr = errors.New("sample pdf: not found")
	s := New(f, nil)
	_, err := s.LoadSamples(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, f.called("create"))
}
