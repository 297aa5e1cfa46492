package mcpserver

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage handles S3 uploads of finished episode artifacts (stitched audio
// and the companion newsletter) for profiles configured with an S3 bucket,
// adapted from the teacher's single-podcast Storage.Upload.
type Storage struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string // e.g. "https://podcasts.apresai.dev"
}

// NewStorage creates an S3 storage handler. A nil client disables uploads;
// UploadEpisodeAudio/UploadNewsletter then return "", "", nil.
func NewStorage(client *s3.Client, bucket, cdnBaseURL string) *Storage {
	return &Storage{client: client, bucket: bucket, cdnBaseURL: cdnBaseURL}
}

// UploadEpisodeAudio uploads the stitched MP3 for episodeID and returns its
// S3 key and public URL.
func (s *Storage) UploadEpisodeAudio(ctx context.Context, episodeID, mp3Path string) (key, url string, err error) {
	return s.upload(ctx, "episodes/"+episodeID+".mp3", mp3Path, "audio/mpeg")
}

// UploadNewsletter uploads the markdown newsletter for episodeID and returns
// its S3 key and public URL.
func (s *Storage) UploadNewsletter(ctx context.Context, episodeID, mdPath string) (key, url string, err error) {
	return s.upload(ctx, "newsletters/"+episodeID+".md", mdPath, "text/markdown")
}

func (s *Storage) upload(ctx context.Context, key, path, contentType string) (string, string, error) {
	if s.client == nil {
		return "", "", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("stat %s: %w", path, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", "", fmt.Errorf("upload to s3: %w", err)
	}

	return key, s.cdnBaseURL + "/" + key, nil
}
