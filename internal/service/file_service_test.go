package service

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor-api/internal/auth"
)

func TestIssueUploadTicketRequiresAuthentication(t *testing.T) {
	svc := NewFileService(&stubFileStorage{}, 10, zerolog.Nop())

	_, err := svc.IssueUploadTicket(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIssueUploadTicket(t *testing.T) {
	svc := NewFileService(&stubFileStorage{}, 10, zerolog.Nop())
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_1"})

	ticket, err := svc.IssueUploadTicket(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://upload.test", ticket.UploadURL)
	require.Equal(t, "sig", ticket.Params["signature"])
}

func TestUploadRequiresAuthentication(t *testing.T) {
	svc := NewFileService(&stubFileStorage{}, 10, zerolog.Nop())

	_, err := svc.Upload(context.Background(), &multipart.FileHeader{Filename: "a.txt", Size: 1})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := NewFileService(&stubFileStorage{}, 1, zerolog.Nop())
	ctx := auth.ContextWithIdentity(context.Background(), &auth.Identity{Subject: "user_1"})

	header := &multipart.FileHeader{Filename: "big.bin", Size: 2 * 1024 * 1024}
	_, err := svc.Upload(ctx, header)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestResolveURL(t *testing.T) {
	svc := NewFileService(&stubFileStorage{resolved: map[string]string{"abc": "https://cdn.test/abc.png"}}, 10, zerolog.Nop())

	file, err := svc.ResolveURL(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", file.StorageID)
	require.Equal(t, "https://cdn.test/abc.png", file.URL)
}
