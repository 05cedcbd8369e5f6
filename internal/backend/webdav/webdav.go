// Package webdav provides a WebDAV-backed Backend built directly on
// net/http and encoding/xml, grounded on the upstream WebDAV provider's
// PROPFIND/MKCOL/PUT/DELETE/MOVE request shapes.
package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	obackend "github.com/openfs/openfs/internal/backend"
)

// Config names the pieces a Backend needs to reach a WebDAV collection.
type Config struct {
	URL      string // base collection URL, e.g. https://host/dav/
	User     string
	Password string
}

// Backend is a WebDAV-backed Backend scoped to one collection URL.
type Backend struct {
	name     string
	base     *url.URL
	user     string
	password string
	client   *http.Client
}

// New validates cfg.URL and returns a Backend that talks to it.
func New(name string, cfg Config) (*Backend, error) {
	u, err := url.Parse(strings.TrimSuffix(cfg.URL, "/") + "/")
	if err != nil {
		return nil, obackend.ConnectionFailed(name, err)
	}
	return &Backend{
		name:     name,
		base:     u,
		user:     cfg.User,
		password: cfg.Password,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) href(p string) *url.URL {
	rel := &url.URL{Path: strings.TrimPrefix(p, "/")}
	return b.base.ResolveReference(rel)
}

func (b *Backend) do(ctx context.Context, method, p string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.href(p).String(), body)
	if err != nil {
		return nil, obackend.IO(err)
	}
	if b.user != "" {
		req.SetBasicAuth(b.user, b.password)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, obackend.ConnectionFailed(b.name, err)
	}
	return resp, nil
}

func (b *Backend) translateStatus(resp *http.Response, p string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return obackend.NotFound(p)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return obackend.PermissionDenied(p)
	case resp.StatusCode == http.StatusPreconditionFailed:
		return obackend.PreconditionFailed("", "")
	case resp.StatusCode >= 400:
		return obackend.IO(fmt.Errorf("webdav %s: unexpected status %s", p, resp.Status))
	}
	return nil
}

func (b *Backend) Read(ctx context.Context, p string) ([]byte, error) {
	resp, err := b.do(ctx, http.MethodGet, p, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := b.translateStatus(resp, p); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, obackend.IO(err)
	}
	return data, nil
}

func (b *Backend) Write(ctx context.Context, p string, data []byte) error {
	if err := b.mkcolAll(ctx, path.Dir(p)); err != nil {
		return err
	}
	resp, err := b.do(ctx, http.MethodPut, p, bytes.NewReader(data), map[string]string{
		"Content-Type": "application/octet-stream",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return b.translateStatus(resp, p)
}

// Append emulates append by reading, concatenating, and re-PUTting: WebDAV
// has no native partial-append verb.
func (b *Backend) Append(ctx context.Context, p string, data []byte) error {
	existing, err := b.Read(ctx, p)
	if err != nil && !obackend.IsKind(err, obackend.KindNotFound) {
		return err
	}
	return b.Write(ctx, p, append(existing, data...))
}

func (b *Backend) Delete(ctx context.Context, p string) error {
	resp, err := b.do(ctx, http.MethodDelete, p, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return b.translateStatus(resp, p)
}

func (b *Backend) Exists(ctx context.Context, p string) (bool, error) {
	_, err := b.Stat(ctx, p)
	if err != nil {
		if obackend.IsKind(err, obackend.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// multistatus mirrors the subset of RFC 4918's response body PROPFIND
// returns that Stat/List need.
type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href     string   `xml:"href"`
	PropStat propstat `xml:"propstat"`
}

type propstat struct {
	Prop prop `xml:"prop"`
}

type prop struct {
	DisplayName  string    `xml:"displayname"`
	ContentLen   string    `xml:"getcontentlength"`
	LastModified string    `xml:"getlastmodified"`
	ResourceType rsrcType  `xml:"resourcetype"`
}

type rsrcType struct {
	Collection *struct{} `xml:"collection"`
}

const propfindBody = `<?xml version="1.0"?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:displayname/>
    <D:getcontentlength/>
    <D:getlastmodified/>
    <D:resourcetype/>
  </D:prop>
</D:propfind>`

func (b *Backend) propfind(ctx context.Context, p string, depth string) (*multistatus, error) {
	resp, err := b.do(ctx, "PROPFIND", p, strings.NewReader(propfindBody), map[string]string{
		"Depth":        depth,
		"Content-Type": "application/xml",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, obackend.NotFound(p)
	}
	if resp.StatusCode != 207 && resp.StatusCode != http.StatusOK {
		return nil, b.translateStatus(resp, p)
	}
	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, obackend.IO(err)
	}
	return &ms, nil
}

func (b *Backend) Stat(ctx context.Context, p string) (obackend.Entry, error) {
	ms, err := b.propfind(ctx, p, "0")
	if err != nil {
		return obackend.Entry{}, err
	}
	if len(ms.Responses) == 0 {
		return obackend.Entry{}, obackend.NotFound(p)
	}
	return entryFromResponse(p, ms.Responses[0]), nil
}

func entryFromResponse(base string, r response) obackend.Entry {
	pr := r.PropStat.Prop
	name := pr.DisplayName
	if name == "" {
		name = path.Base(strings.TrimSuffix(r.Href, "/"))
	}
	e := obackend.Entry{Name: name, IsDir: pr.ResourceType.Collection != nil}
	if !e.IsDir {
		if n, err := strconv.ParseInt(pr.ContentLen, 10, 64); err == nil {
			e.Size = n
			e.HasSize = true
		}
		if t, err := http.ParseTime(pr.LastModified); err == nil {
			e.Modified = t
			e.HasMod = true
		}
	}
	e.Path = path.Join(base, e.Name)
	return e
}

func (b *Backend) List(ctx context.Context, p string) ([]obackend.Entry, error) {
	ms, err := b.propfind(ctx, p, "1")
	if err != nil {
		return nil, err
	}
	var entries []obackend.Entry
	selfHref := strings.TrimSuffix(b.href(p).Path, "/") + "/"
	for _, r := range ms.Responses {
		hrefPath := r.Href
		if u, err := url.Parse(r.Href); err == nil {
			hrefPath = u.Path
		}
		if strings.TrimSuffix(hrefPath, "/")+"/" == selfHref {
			continue // skip the collection's own entry
		}
		entries = append(entries, entryFromResponse(p, r))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (b *Backend) Rename(ctx context.Context, from, to string) error {
	if err := b.mkcolAll(ctx, path.Dir(to)); err != nil {
		return err
	}
	resp, err := b.do(ctx, "MOVE", from, nil, map[string]string{
		"Destination": b.href(to).String(),
		"Overwrite":   "T",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return b.translateStatus(resp, from)
}

// mkcolAll creates dir and its ancestors with MKCOL, tolerating the
// "already exists" 405 a repeated MKCOL returns.
func (b *Backend) mkcolAll(ctx context.Context, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	if err := b.mkcolAll(ctx, path.Dir(dir)); err != nil {
		return err
	}
	resp, err := b.do(ctx, "MKCOL", dir+"/", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusConflict {
		return nil // collection already exists
	}
	return b.translateStatus(resp, dir)
}

var _ obackend.Backend = (*Backend)(nil)
