/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gravwell/gcfg"
)

const (
	mb            int64 = 1024 * 1024
	maxConfigSize int64 = 4 * mb
	confExt       string = ".conf"
)

var (
	ErrConfigFileTooLarge = errors.New("config file is too large")
	ErrFailedFileRead     = errors.New("failed to read entire config file")
	ErrIsNotDirectory     = errors.New("path is not a directory")
)

// LoadConfigFile opens p, enforces the size guard, and parses it into v.
func LoadConfigFile(v interface{}, p string) (err error) {
	var fin *os.File
	var fi os.FileInfo
	var n int64
	if fin, err = os.Open(p); err != nil {
		return
	}
	defer fin.Close()
	if fi, err = fin.Stat(); err != nil {
		return
	}
	if fi.Size() > maxConfigSize {
		return ErrConfigFileTooLarge
	}
	bb := bytes.NewBuffer(nil)
	if n, err = io.Copy(bb, fin); err != nil {
		return
	}
	if n != fi.Size() {
		return ErrFailedFileRead
	}
	return LoadConfigBytes(v, bb.Bytes())
}

// LoadConfigOverlays scans pth for *.conf fragments and layers each on top
// of v in directory order, the drop-in convention every rc binary uses for
// /etc/rc.conf.d-style per-service overrides.
func LoadConfigOverlays(v interface{}, pth string) error {
	if pth == "" || v == nil {
		return nil
	}
	fi, err := os.Stat(pth)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !fi.IsDir() {
		return ErrIsNotDirectory
	}
	dents, err := os.ReadDir(pth)
	if err != nil {
		return err
	}
	for _, dent := range dents {
		if !dent.Type().IsRegular() || filepath.Ext(dent.Name()) != confExt {
			continue
		}
		p := filepath.Join(pth, dent.Name())
		if err := LoadConfigFile(v, p); err != nil {
			return fmt.Errorf("failed to load %q: %w", p, err)
		}
	}
	return nil
}

// LoadConfigBytes parses b into v.
func LoadConfigBytes(v interface{}, b []byte) error {
	if int64(len(b)) > maxConfigSize {
		return ErrConfigFileTooLarge
	}
	return gcfg.ReadStringInto(v, string(b))
}
