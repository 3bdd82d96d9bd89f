// Package filestore 提供本地磁盘文件存储，用于药房执照文档与送达凭证照片。
// 返回相对路径入库，根目录由配置决定，便于以后换成对象存储。
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// Store 文件存储接口。
type Store interface {
	Store(data []byte, subdir string) (string, error)
	Read(relPath string) ([]byte, error)
}

// LocalStore 本地磁盘实现。
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("filestore root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, "create filestore root")
	}
	return &LocalStore{root: root}, nil
}

// Store 写入文件，返回相对 root 的路径。
func (s *LocalStore) Store(data []byte, subdir string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file content")
	}
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pkgerrors.Wrap(err, "create subdir")
	}
	name := uuid.NewString()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", pkgerrors.Wrap(err, "write file")
	}
	return filepath.Join(subdir, name), nil
}

// Read 按相对路径读取文件。路径必须落在 root 内。
func (s *LocalStore) Read(relPath string) ([]byte, error) {
	full := filepath.Join(s.root, relPath)
	clean, err := filepath.Rel(s.root, full)
	if err != nil || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("invalid file path: %s", relPath)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read file")
	}
	return data, nil
}
