package runner

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrEmptySuite is returned for a suite file without test cases.
var ErrEmptySuite = errors.New("suite has no tests")

// ParseSuite decodes a suite from yaml, ignoring a leading UTF-8 BOM.
func ParseSuite(data []byte) (*TestSuite, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	var suite TestSuite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	if len(suite.Tests) == 0 {
		return nil, ErrEmptySuite
	}
	for i, tc := range suite.Tests {
		if strings.TrimSpace(tc.Name) == "" {
			return nil, fmt.Errorf("parse suite: tests[%d] has no name", i)
		}
	}
	return &suite, nil
}

// LoadSuite reads and decodes one suite file. A suite without a
// test_suite name is named after its file.
func LoadSuite(path string) (*TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	suite.Path = path
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

// LoadSuites loads every .yaml/.yml file under dir in path order. It stops
// at the first file that fails to load.
func LoadSuites(dir string) ([]*TestSuite, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	suites := make([]*TestSuite, 0, len(paths))
	for _, p := range paths {
		s, err := LoadSuite(p)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}
