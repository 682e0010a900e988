package staging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	cos "github.com/tencentyun/cos-go-sdk-v5"
)

type cosReader struct{ cli *cos.Client }

func openCOS(_ context.Context, c Config) (Reader, error) {
	var bucketURL *url.URL
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(u.Host, c.Bucket) {
			if !strings.HasSuffix(u.Path, "/"+c.Bucket) {
				u.Path = "/" + c.Bucket
			}
		}
		bucketURL = u
	} else {
		if c.Region == "" {
			return nil, fmt.Errorf("region required for cos when endpoint empty")
		}
		u, _ := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", c.Bucket, c.Region))
		bucketURL = u
	}
	cli := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: c.AccessKey, SecretKey: c.SecretKey},
	})
	return &cosReader{cli: cli}, nil
}

func (r *cosReader) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := r.cli.Object.Get(ctx, sanitizeKey(key), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (r *cosReader) Delete(ctx context.Context, key string) error {
	_, err := r.cli.Object.Delete(ctx, sanitizeKey(key))
	return err
}
