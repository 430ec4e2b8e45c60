package render

import (
	"bytes"
	"context"
	"io"

	"github.com/rkstgr/papermake-aws/internal/ports"
)

// Object key layout in the storage provider.
const (
	templatePrefix = "templates/"
	outputPrefix   = "renders/"
)

// TemplateKey returns the object key holding a template's source.
func TemplateKey(templateID string) string {
	return templatePrefix + templateID
}

// OutputKey returns the object key a job's artifact is uploaded under.
func OutputKey(jobID, ext string) string {
	return outputPrefix + jobID + "." + ext
}

// OutputSink receives rendered artifacts. Implementations must be safe for
// concurrent use: the upload phase shares one sink across all tasks.
// storedKey is where the artifact actually landed; providers like gdrive
// substitute their own id for the requested key.
type OutputSink interface {
	UploadOutput(ctx context.Context, objectKey string, body []byte) (storedKey string, size int64, err error)
}

// TemplateKeyResolver looks up the object key a template's source was
// actually stored under. The repository-recorded key is authoritative:
// providers like gdrive replace the requested key with their own id on
// upload, so the computed path key only matches on path-preserving
// providers.
type TemplateKeyResolver interface {
	TemplateObjectKey(ctx context.Context, templateID string) (string, error)
}

// StorageSourceStore fetches template sources from the storage provider,
// reading by the resolver's recorded key and falling back to the computed
// `templates/<id>` path for sources uploaded outside the catalog.
type StorageSourceStore struct {
	sp       ports.StorageProvider
	resolver TemplateKeyResolver
}

// NewStorageSourceStore builds a source store. resolver may be nil, in
// which case only the path key is tried.
func NewStorageSourceStore(sp ports.StorageProvider, resolver TemplateKeyResolver) *StorageSourceStore {
	return &StorageSourceStore{sp: sp, resolver: resolver}
}

func (s *StorageSourceStore) FetchTemplate(ctx context.Context, templateID string) ([]byte, error) {
	key := TemplateKey(templateID)
	if s.resolver != nil {
		if stored, err := s.resolver.TemplateObjectKey(ctx, templateID); err == nil && stored != "" {
			key = stored
		}
	}

	rc, _, _, err := s.sp.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// StorageSink uploads rendered artifacts to the storage provider.
type StorageSink struct {
	sp          ports.StorageProvider
	contentType string
}

func NewStorageSink(sp ports.StorageProvider, contentType string) *StorageSink {
	return &StorageSink{sp: sp, contentType: contentType}
}

func (s *StorageSink) UploadOutput(ctx context.Context, objectKey string, body []byte) (string, int64, error) {
	out, err := s.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: s.contentType,
		Reader:      bytes.NewReader(body),
		Size:        int64(len(body)),
	})
	if err != nil {
		return "", 0, err
	}
	return out.ObjectKey, out.Size, nil
}
