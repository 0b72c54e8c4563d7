package depgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dchest/safefile"
)

// skewSentinelSuffix names the file written alongside the cache file when a freshly generated
// tree's mtime lands before its newest input's mtime — the clock-skew case
// called out in §4.2.2.
const skewSentinelSuffix = ".skew"

// Serialize writes t to w using the same depinfo_<i>_... grammar consumed
// by LoadDeclarations (phase 5 of the build). Every relation, forward and
// computed back-edge alike, is emitted; re-parsing the cache runs Build
// again, whose deduplication absorbs the back-edges it recomputes, so the
// edge set comes out identical.
func Serialize(t *Tree, w io.Writer) error {
	bw := bufio.NewWriter(w)
	names := sortedNames(t)
	for i, name := range names {
		svc := t.Services[name]
		if _, err := fmt.Fprintf(bw, "depinfo_%d_service='%s'\n", i, svc.Name); err != nil {
			return err
		}
		for _, rt := range relationWriteOrder(svc) {
			for j, target := range svc.Relations[rt] {
				if _, err := fmt.Fprintf(bw, "depinfo_%d_%s_%d='%s'\n", i, rt, j, target); err != nil {
					return err
				}
			}
		}
		if len(svc.Keywords) > 0 {
			kw := make([]string, 0, len(svc.Keywords))
			for k := range svc.Keywords {
				kw = append(kw, string(k))
			}
			if _, err := fmt.Fprintf(bw, "depinfo_%d_keywords='%s'\n", i, joinSpace(kw)); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteCache atomically persists the tree to path using a temp-file +
// rename, matching the teacher's ingesters/utils.State.Write pattern so a
// reader never observes a half-written cache.
func WriteCache(t *Tree, path string) (err error) {
	var fout *safefile.File
	if fout, err = safefile.Create(path, 0644); err != nil {
		return err
	}
	if err = Serialize(t, fout); err != nil {
		fout.Close()
		os.Remove(fout.Name())
		return err
	}
	if err = fout.Commit(); err != nil {
		fout.Close()
		os.Remove(fout.Name())
		return err
	}
	return fixupSkew(path)
}

// fixupSkew detects the case where the freshly written cache's mtime ended
// up older than time.Now() (a backwards clock step mid-write) and bumps it
// forward, recording the event in a sentinel file so subsequent loads can
// warn about it.
func fixupSkew(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	now := time.Now()
	if fi.ModTime().After(now) {
		return nil
	}
	if now.Sub(fi.ModTime()) < time.Second {
		return nil
	}
	if err := os.Chtimes(path, now, now); err != nil {
		return err
	}
	return os.WriteFile(path+skewSentinelSuffix, []byte(now.Format(time.RFC3339)+"\n"), 0644)
}

// SkewDetected reports whether the last WriteCache against path recorded a
// clock-skew event still pending acknowledgement.
func SkewDetected(path string) bool {
	_, err := os.Stat(path + skewSentinelSuffix)
	return err == nil
}

// LoadCache parses a previously-serialized tree back into raw declarations
// and rebuilds it. Because Serialize emits back-edges too, the rebuild is
// idempotent — the dedup in addRelation absorbs the redundant inverse pass.
func LoadCache(path string) (*BuildResult, error) {
	fin, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	decls, err := LoadDeclarations(fin)
	if err != nil {
		return nil, err
	}
	return Build(decls)
}

// Stale implements the cache-validity predicate of §4.2.2: the cache is
// stale if any input (init-scripts directory, config directory, the global
// config file, or any sidecar external-config path) carries an mtime newer
// than the cache file itself. A missing cache is always stale.
func Stale(cachePath, scriptsDir, configDir, globalConfig string, externalConfigs []string) (bool, error) {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	cacheTime := cacheInfo.ModTime()

	newer, err := anyNewerThan(scriptsDir, cacheTime)
	if err != nil || newer {
		return newer, err
	}
	newer, err = anyNewerThan(configDir, cacheTime)
	if err != nil || newer {
		return newer, err
	}
	if globalConfig != "" {
		if fi, err := os.Stat(globalConfig); err == nil {
			if fi.ModTime().After(cacheTime) {
				return true, nil
			}
		} else if !os.IsNotExist(err) {
			return false, err
		}
	}
	for _, p := range externalConfigs {
		fi, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return false, err
		}
		if fi.ModTime().After(cacheTime) {
			return true, nil
		}
	}
	return false, nil
}

func anyNewerThan(dir string, t time.Time) (bool, error) {
	if dir == "" {
		return false, nil
	}
	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if fi.ModTime().After(t) {
		return true, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(t) {
			return true, nil
		}
		if e.IsDir() {
			newer, err := anyNewerThan(filepath.Join(dir, e.Name()), t)
			if err != nil {
				return false, err
			}
			if newer {
				return true, nil
			}
		}
	}
	return false, nil
}

func sortedNames(t *Tree) []string {
	names := make([]string, 0, len(t.Services))
	for n := range t.Services {
		names = append(names, n)
	}
	sortStrings(names)
	return names
}

func relationWriteOrder(svc *Service) []RelType {
	rts := make([]RelType, 0, len(svc.Relations))
	for rt := range svc.Relations {
		rts = append(rts, rt)
	}
	sortRelTypes(rts)
	return rts
}

func joinSpace(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
