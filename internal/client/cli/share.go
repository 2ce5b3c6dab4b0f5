package cli

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/filedrop/internal/client/client"
	"github.com/dmitrijs2005/filedrop/internal/client/uploader"
	"github.com/dmitrijs2005/filedrop/internal/envelope"
	"github.com/dmitrijs2005/filedrop/internal/shared"
)

// Share uploads a file and prints the share code.
func (a *App) Share(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	encrypt := fs.Bool("x", false, "encrypt content with a password before upload")
	ephemeral := fs.Bool("e", false, "expire the share after the first fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: share [-x] [-e] <file>")
	}
	path := fs.Arg(0)

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	meta := uploader.FileMeta{
		Filename: filepath.Base(path),
		MimeType: detectMimeType(path, content),
	}

	if *encrypt {
		password, err := GetPassword(a.out, "Enter password: ")
		if err != nil {
			return err
		}
		confirm, err := GetPassword(a.out, "Confirm password: ")
		if err != nil {
			shared.WipeByteArray(password)
			return err
		}
		if string(password) != string(confirm) {
			shared.WipeByteArray(password)
			shared.WipeByteArray(confirm)
			return fmt.Errorf("passwords do not match")
		}

		content, err = envelope.Seal(string(password), content)
		shared.WipeByteArray(password)
		shared.WipeByteArray(confirm)
		if err != nil {
			return fmt.Errorf("encrypt: %w", err)
		}
	}

	opts := client.ShareOptions{
		Ephemeral: *ephemeral,
		Encrypted: *encrypt,
		Duration:  a.config.Duration,
	}

	up := a.newUploader(func(fraction float64) {
		fmt.Fprintf(a.out, "\ruploading... %3.0f%%", fraction*100)
	})

	created, err := up.Upload(ctx, content, meta, opts)
	if err != nil {
		fmt.Fprintln(a.out)
		return err
	}
	fmt.Fprintln(a.out)

	fmt.Fprintf(a.out, "Share code: %s\n", created.Code)
	if created.DueAt != nil {
		fmt.Fprintf(a.out, "Expires:    %s\n", created.DueAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(a.out, "Expires:    never")
	}

	return nil
}

// detectMimeType guesses from the file extension first and falls back to
// content sniffing.
func detectMimeType(path string, content []byte) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		return mimeType
	}
	return http.DetectContentType(content)
}
