package staging

import (
	"context"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"
)

// blobReader serves the s3 and file drivers through gocloud.
type blobReader struct{ bk *blob.Bucket }

func openBlob(ctx context.Context, urlstr string) (Reader, error) {
	bk, err := blob.OpenBucket(ctx, urlstr)
	if err != nil {
		return nil, err
	}
	return &blobReader{bk: bk}, nil
}

func (r *blobReader) Get(ctx context.Context, key string) ([]byte, error) {
	return r.bk.ReadAll(ctx, sanitizeKey(key))
}

func (r *blobReader) Delete(ctx context.Context, key string) error {
	return r.bk.Delete(ctx, sanitizeKey(key))
}
