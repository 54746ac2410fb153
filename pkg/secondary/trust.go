// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package secondary

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxTrustDirDepth is how deep LoadTrustDir walks looking for
// certificates.
const maxTrustDirDepth = 2

// LoadTrustDir scans dir (depth 2) for PEM/CRT certificates and
// returns an *x509.CertPool seeded with the system pool plus
// everything found, tolerating the non-standard
// "TRUSTED CERTIFICATE" PEM banner some distros emit by rewriting it
// to "CERTIFICATE" before parsing.
func LoadTrustDir(dir string) (*x509.CertPool, error) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	err = walkDepth(dir, maxTrustDirDepth, func(path string) error {
		if !isCertFile(path) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		raw = rewriteTrustedCertificateBanner(raw)
		if !pool.AppendCertsFromPEM(raw) {
			return fmt.Errorf("secondary: no certificates parsed from %s", path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// TLSConfig returns a *tls.Config trusting dir's certificate pool in
// addition to the system roots.
func TLSConfig(dir string) (*tls.Config, error) {
	pool, err := LoadTrustDir(dir)
	if err != nil {
		return nil, err
	}
	return &tls.Config{RootCAs: pool}, nil
}

func isCertFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pem", ".crt":
		return true
	default:
		return false
	}
}

// rewriteTrustedCertificateBanner rewrites the legacy OpenSSL
// "TRUSTED CERTIFICATE" PEM block type to the standard "CERTIFICATE"
// so crypto/x509 will parse it.
func rewriteTrustedCertificateBanner(raw []byte) []byte {
	var out []byte
	rest := raw
	for {
		block, remainder := pem.Decode(rest)
		if block == nil {
			if len(out) == 0 {
				return raw
			}
			return append(out, rest...)
		}
		if block.Type == "TRUSTED CERTIFICATE" {
			block.Type = "CERTIFICATE"
		}
		out = append(out, pem.EncodeToMemory(block)...)
		rest = remainder
	}
}

func walkDepth(root string, depth int, fn func(path string) error) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if depth > 0 {
				if err := walkDepth(path, depth-1, fn); err != nil {
					return err
				}
			}
			continue
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	return nil
}
