// Package transfer stages finished delivery directories into researcher
// staging areas. Deliveries carry sensitive genotype data, so every
// transfer sets explicit permissions and is verified before the run is
// declared complete.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Transfer methods.
const (
	MethodRsync = "rsync"
	MethodCopy  = "copy"
	MethodFTP   = "ftp"
)

// FTPOptions configures the FTP staging target.
type FTPOptions struct {
	Host     string // host or host:port; port 21 assumed when absent
	User     string
	Password string
	Timeout  time.Duration
}

// Options configures a Sender.
type Options struct {
	// Method selects the transfer mechanism. Default MethodRsync.
	Method string

	// StagingRoot is the researcher staging area under which the dated
	// delivery directory is created.
	StagingRoot string

	// ChmodDirs and ChmodFiles are rsync --chmod permission classes.
	// Defaults open directories to group/other traversal and keep files
	// read-only outside the owner.
	ChmodDirs  string
	ChmodFiles string

	FTP FTPOptions
}

func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = MethodRsync
	}
	if o.ChmodDirs == "" {
		o.ChmodDirs = "Du=rwx,Dgo=rx"
	}
	if o.ChmodFiles == "" {
		o.ChmodFiles = "Fu=rw,Fgo=r"
	}
	if o.FTP.Timeout == 0 {
		o.FTP.Timeout = 30 * time.Second
	}
	if o.FTP.User == "" {
		o.FTP.User = "anonymous"
		o.FTP.Password = "anonymous@"
	}
	return o
}

// Report summarizes one staging transfer.
type Report struct {
	SourceDir      string `json:"source_dir"`
	DestinationDir string `json:"destination_dir"`
	Method         string `json:"method"`
	FileCount      int    `json:"file_count"`
	TotalBytes     int64  `json:"total_bytes"`
	Verified       bool   `json:"verified"`
}

// Sender stages delivery directories.
type Sender struct {
	opts Options
}

// NewSender creates a Sender with the given options.
func NewSender(opts Options) *Sender {
	return &Sender{opts: opts.withDefaults()}
}

// Send stages sourceDir into <staging_root>/<project>_Delivery_<YYYYMMDD>/
// and verifies the result by file count and byte totals against the
// source. A verification mismatch returns an error alongside the report,
// so callers can still see how far the transfer got.
func (s *Sender) Send(ctx context.Context, sourceDir, projectID string) (*Report, error) {
	srcFiles, srcBytes, err := tally(sourceDir)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().Format("20060102")
	destName := fmt.Sprintf("%s_Delivery_%s", projectID, stamp)

	report := &Report{
		SourceDir: sourceDir,
		Method:    s.opts.Method,
	}

	log := zap.L().With(
		zap.String("project", projectID),
		zap.String("method", s.opts.Method),
		zap.String("source", sourceDir))

	switch s.opts.Method {
	case MethodFTP:
		report.DestinationDir = path.Join(s.opts.StagingRoot, destName)
		err = s.sendFTP(ctx, sourceDir, report.DestinationDir, report)
	case MethodRsync:
		report.DestinationDir = filepath.Join(s.opts.StagingRoot, destName)
		if err = s.rsync(ctx, sourceDir, report.DestinationDir); err == nil {
			err = verifyLocal(report.DestinationDir, report)
		}
	case MethodCopy:
		report.DestinationDir = filepath.Join(s.opts.StagingRoot, destName)
		if err = copyDir(sourceDir, report.DestinationDir); err == nil {
			err = verifyLocal(report.DestinationDir, report)
		}
	default:
		return nil, eris.Errorf("transfer: unknown method %q", s.opts.Method)
	}
	if err != nil {
		return report, err
	}

	report.Verified = report.FileCount == srcFiles && report.TotalBytes == srcBytes
	if !report.Verified {
		log.Warn("transfer verification mismatch",
			zap.Int("source_files", srcFiles),
			zap.Int("dest_files", report.FileCount),
			zap.Int64("source_bytes", srcBytes),
			zap.Int64("dest_bytes", report.TotalBytes))
		return report, eris.Errorf(
			"transfer: verification failed: source has %d files (%d bytes), destination has %d files (%d bytes)",
			srcFiles, srcBytes, report.FileCount, report.TotalBytes)
	}

	log.Info("transfer complete",
		zap.String("destination", report.DestinationDir),
		zap.Int("files", report.FileCount),
		zap.Int64("bytes", report.TotalBytes))
	return report, nil
}

// tally counts the regular files and their total size directly under dir.
func tally(dir string) (int, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "transfer: read source directory %s", dir)
	}
	var count int
	var total int64
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, 0, eris.Wrapf(err, "transfer: stat %s", entry.Name())
		}
		count++
		total += info.Size()
	}
	return count, total, nil
}

func verifyLocal(dest string, report *Report) error {
	count, total, err := tally(dest)
	if err != nil {
		return err
	}
	report.FileCount = count
	report.TotalBytes = total
	return nil
}

func rsyncArgs(src, dest, chmodDirs, chmodFiles string) []string {
	// Trailing slash on the source: copy contents, not the directory.
	return []string{
		"-a",
		"--chmod=" + chmodDirs + "," + chmodFiles,
		strings.TrimSuffix(src, "/") + "/",
		strings.TrimSuffix(dest, "/") + "/",
	}
}

func (s *Sender) rsync(ctx context.Context, src, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return eris.Wrapf(err, "transfer: create destination %s", dest)
	}

	args := rsyncArgs(src, dest, s.opts.ChmodDirs, s.opts.ChmodFiles)
	zap.L().Debug("running rsync", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return eris.Wrapf(err, "transfer: rsync failed: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}

// copyDir copies the regular files directly under src into dest,
// preserving file modes and modification times.
func copyDir(src, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return eris.Wrapf(err, "transfer: create destination %s", dest)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return eris.Wrapf(err, "transfer: read source directory %s", src)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "transfer: open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return eris.Wrapf(err, "transfer: stat %s", src)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return eris.Wrapf(err, "transfer: create %s", dest)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return eris.Wrapf(err, "transfer: copy %s", dest)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "transfer: close %s", dest)
	}
	return os.Chtimes(dest, time.Now(), info.ModTime())
}

func (s *Sender) sendFTP(ctx context.Context, src, dest string, report *Report) error {
	if s.opts.FTP.Host == "" {
		return eris.New("transfer: ftp host required")
	}
	host := s.opts.FTP.Host
	if !strings.Contains(host, ":") {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(s.opts.FTP.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "transfer: ftp dial")
	}
	defer conn.Quit()

	if err := conn.Login(s.opts.FTP.User, s.opts.FTP.Password); err != nil {
		return eris.Wrap(err, "transfer: ftp login")
	}

	// Best-effort mkdir -p: servers reject MakeDir on existing segments.
	segments := strings.Split(strings.Trim(dest, "/"), "/")
	prefix := ""
	for _, seg := range segments {
		prefix = path.Join(prefix, seg)
		_ = conn.MakeDir(prefix)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return eris.Wrapf(err, "transfer: read source directory %s", src)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := storFile(conn, filepath.Join(src, entry.Name()), path.Join(dest, entry.Name())); err != nil {
			return err
		}
	}

	remote, err := conn.List(dest)
	if err != nil {
		return eris.Wrapf(err, "transfer: ftp list %s", dest)
	}
	for _, entry := range remote {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		report.FileCount++
		report.TotalBytes += int64(entry.Size)
	}
	return nil
}

func storFile(conn *ftp.ServerConn, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return eris.Wrapf(err, "transfer: open %s", localPath)
	}
	defer f.Close()

	if err := conn.Stor(remotePath, f); err != nil {
		return eris.Wrapf(err, "transfer: ftp store %s", remotePath)
	}
	return nil
}
