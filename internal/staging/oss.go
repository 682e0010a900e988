package staging

import (
	"context"
	"io"

	oss "github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossReader struct{ bk *oss.Bucket }

func openOSS(_ context.Context, c Config) (Reader, error) {
	cli, err := oss.New(c.Endpoint, c.AccessKey, c.SecretKey)
	if err != nil {
		return nil, err
	}
	bk, err := cli.Bucket(c.Bucket)
	if err != nil {
		return nil, err
	}
	return &ossReader{bk: bk}, nil
}

func (r *ossReader) Get(_ context.Context, key string) ([]byte, error) {
	body, err := r.bk.GetObject(sanitizeKey(key))
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (r *ossReader) Delete(_ context.Context, key string) error {
	return r.bk.DeleteObject(sanitizeKey(key))
}
