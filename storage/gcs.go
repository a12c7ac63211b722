package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var gcsClient *gcs.Client

func InitializeGCS() {
	ctx := context.Background()

	var (
		client *gcs.Client
		err    error
	)
	if credsFile := os.Getenv("GCS_CREDENTIALS_FILE"); credsFile != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(credsFile))
	} else {
		client, err = gcs.NewClient(ctx)
	}
	if err != nil {
		log.Panic("error connecting to cloud storage: " + err.Error())
	}

	gcsClient = client
}

// UploadBase64Image stores a base64 image (raw or data URL) under
// objectName in the media bucket and returns its durable public URL.
func UploadBase64Image(base64Src string, objectName string) (string, error) {
	if base64Src == "" {
		return "", fmt.Errorf("empty image payload")
	}

	bucket := os.Getenv("GCS_MEDIA_BUCKET")
	if bucket == "" {
		return "", fmt.Errorf("GCS_MEDIA_BUCKET environment variable is required")
	}

	contentType := "image/jpeg"
	payload := base64Src
	if i := strings.Index(base64Src, ","); i != -1 {
		header := base64Src[:i]
		payload = base64Src[i+1:]
		if j := strings.Index(header, ":"); j != -1 {
			if k := strings.Index(header, ";"); k > j {
				contentType = header[j+1 : k]
			}
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	w := gcsClient.Bucket(bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectName), nil
}
