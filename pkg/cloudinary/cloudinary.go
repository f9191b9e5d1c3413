package cloudinary

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/harborchat/harbor-api/internal/service"
)

const directUploadTTL = 10 * time.Minute

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements the storage collaborator using Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	cfg    Config
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		cfg:    cfg,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload sends the file to Cloudinary and returns its storage id and secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (service.StoredFile, error) {
	folder := strings.Trim(s.cfg.Folder, "/")
	publicID := buildPublicID(name)

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return service.StoredFile{}, fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return service.StoredFile{
		StorageID: result.PublicID,
		URL:       result.SecureURL,
		FileName:  name,
	}, nil
}

// SignDirectUpload mints the signed parameters a client needs to upload
// straight to Cloudinary without relaying bytes through this service.
func (s *Service) SignDirectUpload(ctx context.Context) (service.UploadTicket, error) {
	timestamp := time.Now().Unix()
	folder := strings.Trim(s.cfg.Folder, "/")

	toSign := url.Values{}
	toSign.Set("timestamp", strconv.FormatInt(timestamp, 10))
	if folder != "" {
		toSign.Set("folder", folder)
	}

	signature, err := api.SignParameters(toSign, s.cfg.APISecret)
	if err != nil {
		return service.UploadTicket{}, fmt.Errorf("failed to sign upload parameters: %w", err)
	}

	params := map[string]string{
		"api_key":   s.cfg.APIKey,
		"timestamp": strconv.FormatInt(timestamp, 10),
		"signature": signature,
	}
	if folder != "" {
		params["folder"] = folder
	}

	return service.UploadTicket{
		URL:       fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/auto/upload", s.cfg.CloudName),
		Params:    params,
		ExpiresAt: time.Now().Add(directUploadTTL),
	}, nil
}

// ResolveURL maps a storage id to a durable delivery URL.
func (s *Service) ResolveURL(ctx context.Context, storageID string) (string, error) {
	asset, err := s.client.Image(storageID)
	if err != nil {
		return "", fmt.Errorf("failed to build asset for %q: %w", storageID, err)
	}

	resolved, err := asset.String()
	if err != nil {
		return "", fmt.Errorf("failed to resolve url for %q: %w", storageID, err)
	}

	return resolved, nil
}

func buildPublicID(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)

	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	return fmt.Sprintf("%s-%d", base, time.Now().Unix())
}
