package sftpclient

import (
	"context"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/Howie-0721/ICR-Identification-tool/pkg/config"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/fileutil"
	"github.com/Howie-0721/ICR-Identification-tool/pkg/log"
)

const dialTimeout = 30 * time.Second

// Client uploads staged documents to the recognition host.
type Client struct {
	host     string
	port     int
	username string
	password string
}

// New creates a client from the SFTP section of config.ini.
func New(settings config.SFTPSettings) *Client {
	return &Client{
		host:     settings.Host,
		port:     settings.Port,
		username: settings.Username,
		password: settings.Password,
	}
}

// UploadDir uploads every regular file inside localDir into remoteDir.
// The directory must contain at least one file. Cancelling the context
// aborts the transfer between files.
func (c *Client) UploadDir(ctx context.Context, localDir, remoteDir string) error {
	files, err := fileutil.ListFiles(localDir)
	if err != nil {
		return errors.Wrapf(err, "upload folder '%s' is not readable", localDir)
	}
	if len(files) == 0 {
		return errors.Errorf("no files to upload in '%s'", localDir)
	}
	log.Entry().Infof("uploading %d files from %s", len(files), localDir)

	conn, client, err := c.connect()
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "upload cancelled")
		}
		log.Entry().Infof("[%d/%d] uploading %s", i+1, len(files), name)
		if err := uploadFile(client, filepath.Join(localDir, name), remoteFilePath(remoteDir, name)); err != nil {
			return err
		}
	}

	log.Entry().Info("upload finished")
	return nil
}

func (c *Client) connect() (*ssh.Client, *sftp.Client, error) {
	sshConfig := &ssh.ClientConfig{
		User: c.username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.password),
		},
		// The recognition host lives on an isolated test network and its
		// host key is not provisioned on operator machines.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	log.Entry().Debugf("connecting to SFTP %s", addr)
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to connect to SFTP host %s", addr)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, nil, errors.Wrap(err, "failed to open SFTP session")
	}
	log.Entry().Infof("connected to %s", addr)
	return conn, client, nil
}

func uploadFile(client *sftp.Client, localPath, remotePath string) error {
	source, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open '%s'", localPath)
	}
	defer source.Close()

	target, err := client.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create remote file '%s'", remotePath)
	}
	defer target.Close()

	if _, err := target.ReadFrom(source); err != nil {
		return errors.Wrapf(err, "failed to upload '%s'", remotePath)
	}
	log.Entry().Debugf("uploaded %s", remotePath)
	return nil
}

// remoteFilePath joins with forward slashes regardless of the local OS.
func remoteFilePath(remoteDir, name string) string {
	return path.Join(remoteDir, name)
}
