package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores a conversation transcript before it is cleared.
type Archiver interface {
	Archive(ctx context.Context, userID uuid.UUID, chats []domain.Message) (string, error)
}

// Transcript is the JSON document written for each archived conversation.
type Transcript struct {
	UserID     uuid.UUID        `json:"userId"`
	ArchivedAt time.Time        `json:"archivedAt"`
	Chats      []domain.Message `json:"chats"`
}

type noopArchiver struct{}

func NewNoopArchiver() Archiver {
	return noopArchiver{}
}

func (noopArchiver) Archive(context.Context, uuid.UUID, []domain.Message) (string, error) {
	return "", nil
}

// MinioArchiver wraps a MinIO client for transcript storage.
type MinioArchiver struct {
	client *minio.Client
	bucket string
	now    func() time.Time
}

func NewMinioArchiver(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioArchiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioArchiver{client: client, bucket: bucket, now: time.Now}, nil
}

// Archive uploads the transcript and returns its object key.
func (a *MinioArchiver) Archive(ctx context.Context, userID uuid.UUID, chats []domain.Message) (string, error) {
	archivedAt := a.now().UTC()
	data, err := json.Marshal(Transcript{
		UserID:     userID,
		ArchivedAt: archivedAt,
		Chats:      chats,
	})
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	key := fmt.Sprintf("%s/%d.json", userID, archivedAt.UnixNano())
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload transcript: %w", err)
	}
	return key, nil
}

// Fetch reads an archived transcript back.
func (a *MinioArchiver) Fetch(ctx context.Context, key string) (*Transcript, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var t Transcript
	if err := json.NewDecoder(obj).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &t, nil
}
