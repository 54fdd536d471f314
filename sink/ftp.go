package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/rs/zerolog/log"
)

// ftpConn is the subset of *ftp.ServerConn used for uploads
type ftpConn interface {
	Login(user, password string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// FTPUploader stores the report on an FTP server. The bucket is used as the
// remote base directory.
type FTPUploader struct {
	cfg  config.FTPConfig
	dial func(ctx context.Context, addr string) (ftpConn, error)
}

// NewFTPUploader creates an uploader for the configured server
func NewFTPUploader(cfg config.FTPConfig) *FTPUploader {
	return &FTPUploader{
		cfg: cfg,
		dial: func(ctx context.Context, addr string) (ftpConn, error) {
			return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
		},
	}
}

// Upload implements Uploader
func (u *FTPUploader) Upload(ctx context.Context, localPath, bucket, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", common.ErrIO, localPath, err)
	}
	defer file.Close()

	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)
	conn, err := u.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to FTP server %s: %v", common.ErrUpload, addr, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			log.Debug().Err(err).Msg("FTP quit failed")
		}
	}()

	if err := conn.Login(u.cfg.Username, u.cfg.Password); err != nil {
		return fmt.Errorf("%w: failed to login to FTP server %s: %v", common.ErrUpload, addr, err)
	}

	remote := path.Join(bucket, key)
	u.ensureDir(conn, path.Dir(remote))

	if err := conn.Stor(remote, file); err != nil {
		return fmt.Errorf("%w: failed to store %s on %s: %v", common.ErrUpload, remote, addr, err)
	}
	return nil
}

// ensureDir creates every directory of dir. Existing directories make MakeDir
// fail, so errors are only logged; a real problem surfaces in Stor.
func (u *FTPUploader) ensureDir(conn ftpConn, dir string) {
	if dir == "." || dir == "/" || dir == "" {
		return
	}

	current := ""
	if strings.HasPrefix(dir, "/") {
		current = "/"
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		current = path.Join(current, part)
		if err := conn.MakeDir(current); err != nil {
			log.Debug().Err(err).Str("dir", current).Msg("FTP mkdir skipped")
		}
	}
}
