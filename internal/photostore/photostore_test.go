package photostore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/erazemk/sledljivost/internal/db"
	"github.com/erazemk/sledljivost/internal/ledger"
	"github.com/erazemk/sledljivost/internal/model"
)

// fakeS3 answers path-style PutObject and GetObject requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
	uploadedBy  string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(req.URL.Path, "/")

	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			if body, err = decodeChunked(body); err != nil {
				return nil, err
			}
		}
		f.objects[key] = fakeObject{
			body:        body,
			contentType: req.Header.Get("Content-Type"),
			uploadedBy:  headerFold(req.Header, "X-Amz-Meta-Uploaded-By"),
		}
		return respond(http.StatusOK, nil, http.Header{"Etag": {`"etag"`}}), nil

	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			body := []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return respond(http.StatusNotFound, body, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(http.StatusOK, obj.body, http.Header{
			"Content-Type":           {obj.contentType},
			"Content-Length":         {strconv.Itoa(len(obj.body))},
			"Last-Modified":          {time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
			"X-Amz-Meta-Uploaded-By": {obj.uploadedBy},
		}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

// headerFold looks up key ignoring case, in case the header map was written
// without canonical keys.
func headerFold(h http.Header, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func respond(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// decodeChunked strips aws-chunked framing: <hex size>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeChunked(b []byte) ([]byte, error) {
	r := bufio.NewReader(bytes.NewReader(b))
	var out []byte
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing chunk size: %w", err)
		}
		if size == 0 {
			return out, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		out = append(out, chunk...)
		if _, err := r.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestS3(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]fakeObject)}
	s, err := NewS3(context.Background(), S3Config{
		Bucket:    "produce-photos",
		Endpoint:  "https://s3.test",
		PathStyle: true,
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.Credentials = credentials.NewStaticCredentialsProvider("AKIDTEST", "SECRET", "")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	return s, fake
}

func TestS3PutAndGet(t *testing.T) {
	s, fake := newTestS3(t)
	ctx := context.Background()

	photo, err := s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if photo != nil {
		t.Fatal("expected nil for missing photo")
	}

	data := []byte("\xff\xd8 jpeg bytes with \r\n inside")
	if err := s.Put(ctx, 7, data, "image/jpeg", "farmer"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := fake.objects["produce-photos/items/7/photo"]; !ok {
		t.Fatalf("expected object under items/7/photo, have %v", fake.objects)
	}

	photo, err = s.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(photo.Data, data) {
		t.Errorf("expected stored bytes back, got %q", photo.Data)
	}
	if photo.MIME != "image/jpeg" || photo.UploadedBy != "farmer" || photo.UPC != 7 {
		t.Errorf("unexpected photo metadata: %+v", photo)
	}
	if photo.UpdatedAt.Year() != 2026 {
		t.Errorf("expected last-modified time, got %s", photo.UpdatedAt)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without a bucket")
	}
}

func TestDBStore(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	l, err := ledger.Init(ctx, database, "admin")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := l.HarvestItem(ctx, "admin", model.Harvest{UPC: 3, FarmerID: "admin"}); err != nil {
		t.Fatalf("HarvestItem: %v", err)
	}

	var s Store = NewDB(database)
	if s.Driver() != "db" {
		t.Errorf("expected db driver, got %s", s.Driver())
	}
	if err := s.Put(ctx, 3, []byte("jpeg"), "image/jpeg", "admin"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	photo, err := s.Get(ctx, 3)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(photo.Data) != "jpeg" || photo.UploadedBy != "admin" {
		t.Errorf("unexpected photo: %+v", photo)
	}
}
