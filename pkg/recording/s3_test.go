package recording_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/terra-femme/MedJournee/pkg/recording"
)

type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := recording.NewStore(recording.NewS3(fake, "medjournee", "prod"))
	clip := testClip(2000)

	if err := store.Save(ctx, "fam-1", "sess-1", clip); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := fake.objects["prod/recordings/fam-1/sess-1.wav"]; !ok {
		t.Fatalf("object keys = %v", keysOf(fake.objects))
	}
	got, err := store.Load(ctx, "fam-1", "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Samples) != len(clip.Samples) {
		t.Fatalf("got %d samples, want %d", len(got.Samples), len(clip.Samples))
	}
}

func TestS3StoreMissingObject(t *testing.T) {
	ctx := context.Background()
	store := recording.NewStore(recording.NewS3(newFakeS3(), "medjournee", ""))

	if _, err := store.Load(ctx, "fam-1", "nope"); err == nil {
		t.Fatal("Load of missing object succeeded")
	}
	if ok, err := store.Exists(ctx, "fam-1", "nope"); err != nil || ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := store.Delete(ctx, "fam-1", "nope"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func keysOf(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
