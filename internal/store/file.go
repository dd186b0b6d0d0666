package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
)

// Codec is the on-disk encoding of a FileStore.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// FileStore keeps one file per document in a directory.
type FileStore struct {
	dir   string
	codec Codec
}

func NewFileStore(dir string, codec Codec) (*FileStore, error) {
	if codec != CodecJSON && codec != CodecMsgpack {
		return nil, fmt.Errorf("unknown codec %q", codec)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &FileStore{dir: dir, codec: codec}, nil
}

func (s *FileStore) path(documentID string) (string, error) {
	if documentID == "" || strings.ContainsAny(documentID, `/\`) || documentID == "." || documentID == ".." {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid document ID %q", documentID)
	}
	return filepath.Join(s.dir, documentID+"."+string(s.codec)), nil
}

func (s *FileStore) Load(_ context.Context, documentID string) (*document.Snapshot, error) {
	path, err := s.path(documentID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeNotFound, "document not found: %s", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	snap, err := Decode(data, s.codec)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap *document.Snapshot) error {
	path, err := s.path(snap.ID)
	if err != nil {
		return err
	}
	if cur, err := s.Load(ctx, snap.ID); err == nil && cur.Version > snap.Version {
		return errors.New(errors.ErrCodeInvalidInput, "stale snapshot: stored version %d is newer than %d", cur.Version, snap.Version)
	}

	data, err := Encode(snap, s.codec)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, snap.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	suffix := "." + string(s.codec)
	var ids []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			ids = append(ids, strings.TrimSuffix(e.Name(), suffix))
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Encode serialises a snapshot. Msgpack reuses the json field names.
func Encode(snap *document.Snapshot, codec Codec) ([]byte, error) {
	switch codec {
	case CodecJSON:
		return json.MarshalIndent(snap, "", "  ")
	case CodecMsgpack:
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetCustomStructTag("json")
		if err := enc.Encode(snap); err != nil {
			return nil, fmt.Errorf("encode msgpack: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unknown codec %q", codec)
}

// Decode is the inverse of Encode.
func Decode(data []byte, codec Codec) (*document.Snapshot, error) {
	var snap document.Snapshot
	switch codec {
	case CodecJSON:
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
	case CodecMsgpack:
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		dec.SetCustomStructTag("json")
		if err := dec.Decode(&snap); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown codec %q", codec)
	}
	return &snap, nil
}

// CodecOf picks a codec from a file name, defaulting to JSON.
func CodecOf(path string) Codec {
	if strings.EqualFold(filepath.Ext(path), ".msgpack") {
		return CodecMsgpack
	}
	return CodecJSON
}
