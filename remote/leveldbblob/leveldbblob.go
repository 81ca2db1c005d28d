// Package leveldbblob implements a remote.BlobClient on a local leveldb database. It's
// meant to keep mirrored copies on a separate disk or network mount when no cloud
// backend is configured.
package leveldbblob

import (
	"bytes"
	"context"
	"fmt"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/teamkill/tkscot/atomicfile"
	"github.com/teamkill/tkscot/remote"
	"os"
	"path/filepath"
)

// LevelDB holds a database name and its leveldb instance
type LevelDB struct {
	Name     string
	database *leveldb.DB
}

// New instantiates and opens a new LevelDB blob client. If the leveldb database doesn't
// exist, one is created
func New(name string, storagePath string) (ldb *LevelDB, err error) {
	// Expand '~' as the full home directory path if appropriate
	path, err := homedir.Expand(storagePath)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(path, name)
	db, err := leveldb.OpenFile(fullPath, nil)

	if _, ok := err.(*leveldberrors.ErrCorrupted); ok {
		return nil, errors.Wrap(err, fmt.Sprintf("leveldb corrupted. Consider deleting [%s] and restarting if you don't mind losing mirrored copies", fullPath))
	} else if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to open file with path [%s]", fullPath))
	}

	return &LevelDB{name, db}, nil
}

// Close closes the LevelDB
func (ldb *LevelDB) Close() (err error) {
	return ldb.database.Close()
}

// Push stores the content of localPath under the key remoteID
func (ldb *LevelDB) Push(ctx context.Context, localPath string, remoteID string) (err error) {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read [%s] for upload", localPath)
	}

	return ldb.database.Put([]byte(remoteID), content, nil)
}

// Pull writes the value stored under remoteID to localPath
func (ldb *LevelDB) Pull(ctx context.Context, remoteID string, localPath string) (err error) {
	content, err := ldb.database.Get([]byte(remoteID), nil)
	if err == leveldb.ErrNotFound {
		return errors.Wrapf(remote.ErrNotFound, "key [%s]", remoteID)
	} else if err != nil {
		return err
	}

	return atomicfile.WriteFrom(localPath, bytes.NewReader(content))
}
