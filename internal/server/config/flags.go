package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/filedrop/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-t string   admin bearer token (empty disables the admin API)
//	-k string   blob backend: badger | s3 | memory
//	-f string   Badger data directory
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   default share duration (e.g., "1hour", "3day", "never")
//	-m int      max direct upload size, MiB
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-k", "-f", "-u", "-p", "-b", "-g", "-e", "-l", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AdminToken, "t", config.AdminToken, "admin bearer token")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend (badger|s3|memory)")
	fs.StringVar(&config.BadgerDir, "f", config.BadgerDir, "badger data directory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.ShareDuration, "l", config.ShareDuration, "default share duration")
	fs.Int64Var(&config.ShareMaxSizeMB, "m", config.ShareMaxSizeMB, "max direct upload size (MiB)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
