package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/common"
	"github.com/dmitrijs2005/filedrop/internal/envelope"
	"github.com/dmitrijs2005/filedrop/internal/hashx"
	"github.com/dmitrijs2005/filedrop/internal/shared"
)

// Fetch resolves a share code, downloads the content and writes it to a
// file. Encrypted shares prompt for the password and decrypt locally.
func (a *App) Fetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	output := fs.String("o", "", "output file (defaults to the shared filename)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: fetch [-o file] <code>")
	}
	code := fs.Arg(0)

	info, err := a.client.GetShareByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("share %q not found or expired", code)
		}
		return err
	}

	rc, err := a.client.FetchObject(ctx, info.ID, info.Token)
	if err != nil {
		return err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	// The stored hash covers the bytes as uploaded, ciphertext included, so
	// it is checked before any decryption.
	if info.Hash != "" && hashx.Sum(content) != info.Hash {
		return common.ErrorIntegrity
	}

	if info.IsEncrypted {
		password, err := GetPassword(a.out, "Enter password: ")
		if err != nil {
			return err
		}
		content, err = envelope.Open(string(password), content)
		shared.WipeByteArray(password)
		if err != nil {
			return err
		}
	}

	path := *output
	if path == "" {
		path = info.Filename
	}
	if path == "" {
		path = code + ".bin"
	}

	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, len(content))
	return nil
}
