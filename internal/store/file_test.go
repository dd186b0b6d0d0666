package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
)

func TestFileStore(t *testing.T) {
	for _, codec := range []Codec{CodecJSON, CodecMsgpack} {
		t.Run(string(codec), func(t *testing.T) {
			ctx := context.Background()
			s, err := NewFileStore(t.TempDir(), codec)
			require.NoError(t, err)

			snap := document.NewSampleDocument("doc_sample")
			require.NoError(t, s.Save(ctx, snap))

			got, err := s.Load(ctx, "doc_sample")
			require.NoError(t, err)
			assert.Equal(t, snap, got)

			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"doc_sample"}, ids)
		})
	}
}

func TestFileStoreVersions(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), CodecJSON)
	require.NoError(t, err)

	snap := document.NewSampleDocument("doc_v")
	snap.Version = 3
	require.NoError(t, s.Save(ctx, snap))

	snap.Version = 2
	err = s.Save(ctx, snap)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	snap.Version = 4
	require.NoError(t, s.Save(ctx, snap))
	got, err := s.Load(ctx, "doc_v")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Version)
}

func TestFileStoreErrors(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), CodecMsgpack)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "doc_missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	_, err = s.Load(context.Background(), "../etc/passwd")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, err = NewFileStore(t.TempDir(), "xml")
	assert.Error(t, err)
}

func TestCodecOf(t *testing.T) {
	assert.Equal(t, CodecMsgpack, CodecOf("a/b/doc.msgpack"))
	assert.Equal(t, CodecJSON, CodecOf("doc.json"))
	assert.Equal(t, CodecJSON, CodecOf("doc"))
}
