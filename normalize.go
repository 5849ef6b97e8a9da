package photodedup

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PhotoItemPayload is the wire shape of one explicitly-supplied photo item.
type PhotoItemPayload struct {
	ID                   string   `json:"id"`
	CreateTime           string   `json:"createTime"` // RFC 3339
	Filename             *string  `json:"filename,omitempty"`
	MIMEType             *string  `json:"mimeType,omitempty"`
	Width                *int     `json:"width,omitempty"`
	Height               *int     `json:"height,omitempty"`
	GPSLatitude          *float64 `json:"gpsLatitude,omitempty"`
	GPSLongitude         *float64 `json:"gpsLongitude,omitempty"`
	DownloadURL          *string  `json:"downloadUrl,omitempty"`
	GooglePhotosDeepLink *string  `json:"googlePhotosDeepLink,omitempty"`
}

// ScanRequest is the inbound request shape. Exactly one of PhotoItems or
// PickerPayload is expected to be non-empty; the HTTP layer (out of scope)
// enforces that before reaching the core.
type ScanRequest struct {
	PhotoItems    []PhotoItemPayload `json:"photoItems,omitempty"`
	PickerPayload []json.RawMessage  `json:"pickerPayload,omitempty"`
}

// NormalizePhotoItemPayload converts one explicit payload entry into a
// PhotoItem. Invalid timestamps map to the Unix epoch in UTC.
func NormalizePhotoItemPayload(p PhotoItemPayload) PhotoItem {
	item := PhotoItem{
		ID:         p.ID,
		CreateTime: parseCreateTime(p.CreateTime),
	}
	if p.Filename != nil {
		item.Filename = *p.Filename
	}
	if p.MIMEType != nil {
		item.MIMEType = *p.MIMEType
	}
	if p.Width != nil {
		item.Width = *p.Width
	}
	if p.Height != nil {
		item.Height = *p.Height
	}
	if p.GPSLatitude != nil && p.GPSLongitude != nil {
		item.GPS = &GPSCoord{Latitude: *p.GPSLatitude, Longitude: *p.GPSLongitude}
	}
	if p.DownloadURL != nil {
		item.DownloadURL = *p.DownloadURL
	}
	if p.GooglePhotosDeepLink != nil {
		item.DeepLink = *p.GooglePhotosDeepLink
	}
	return item
}

// flexNumber decodes a JSON number that providers sometimes send quoted as a
// string (e.g. "1200", "40.7"). Both forms unmarshal to the same value.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		if s == "" {
			*n = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = flexNumber(v)
	return nil
}

func (n flexNumber) Int() int         { return int(n) }
func (n flexNumber) Float64() float64 { return float64(n) }

type pickerLocation struct {
	Latitude  flexNumber `json:"latitude"`
	Longitude flexNumber `json:"longitude"`
}

// pickerMediaItem models the nested provider payload shape: top-level keys
// take precedence over the nested mediaFile/mediaFileMetadata path
// (first-match-wins).
type pickerMediaItem struct {
	ID         string          `json:"id"`
	CreateTime string          `json:"createTime"`
	Filename   string          `json:"filename"`
	MIMEType   string          `json:"mimeType"`
	Width      flexNumber      `json:"width"`
	Height     flexNumber      `json:"height"`
	Location   *pickerLocation `json:"location"`
	BaseURL    string          `json:"baseUrl"`
	ProductURL string          `json:"productUrl"`

	MediaFile *struct {
		ID                string     `json:"id"`
		BaseURL           string     `json:"baseUrl"`
		Filename          string     `json:"filename"`
		MIMEType          string     `json:"mimeType"`
		CreateTime        string     `json:"createTime"`
		ProductURL        string     `json:"productUrl"`
		MediaFileMetadata *struct {
			CreateTime string          `json:"creationTime"`
			Width      flexNumber      `json:"width"`
			Height     flexNumber      `json:"height"`
			Location   *pickerLocation `json:"location"`
		} `json:"mediaFileMetadata"`
	} `json:"mediaFile"`
}

// NormalizePickerItem converts one nested provider-specific JSON record into
// a PhotoItem. Items missing id or createTime are dropped (ok=false).
func NormalizePickerItem(raw json.RawMessage) (item PhotoItem, ok bool) {
	var m pickerMediaItem
	if err := json.Unmarshal(raw, &m); err != nil {
		return PhotoItem{}, false
	}

	id := m.ID
	if id == "" && m.MediaFile != nil {
		id = m.MediaFile.ID
	}
	if id == "" {
		return PhotoItem{}, false
	}

	createTimeStr := firstNonEmpty(m.CreateTime, firstNonEmpty(mediaFileCreateTime(m), mediaFileMetaCreateTime(m)))
	if createTimeStr == "" {
		return PhotoItem{}, false
	}

	item.ID = id
	item.CreateTime = parseCreateTime(createTimeStr)

	item.Filename = firstNonEmpty(m.Filename, mediaFileFilename(m))
	item.MIMEType = firstNonEmpty(m.MIMEType, mediaFileMIMEType(m))

	item.Width = firstPositive(m.Width.Int(), mediaFileMetaWidth(m))
	item.Height = firstPositive(m.Height.Int(), mediaFileMetaHeight(m))

	if loc := firstLocation(m.Location, mediaFileMetaLocation(m)); loc != nil {
		item.GPS = &GPSCoord{Latitude: loc.Latitude.Float64(), Longitude: loc.Longitude.Float64()}
	}

	item.DownloadURL = firstNonEmpty(m.BaseURL, mediaFileBaseURL(m))
	item.DeepLink = firstNonEmpty(m.ProductURL, mediaFileProductURL(m))

	return item, true
}

func mediaFileFilename(m pickerMediaItem) string {
	if m.MediaFile == nil {
		return ""
	}
	return m.MediaFile.Filename
}

func mediaFileMIMEType(m pickerMediaItem) string {
	if m.MediaFile == nil {
		return ""
	}
	return m.MediaFile.MIMEType
}

func mediaFileBaseURL(m pickerMediaItem) string {
	if m.MediaFile == nil {
		return ""
	}
	return m.MediaFile.BaseURL
}

func mediaFileProductURL(m pickerMediaItem) string {
	if m.MediaFile == nil {
		return ""
	}
	return m.MediaFile.ProductURL
}

func mediaFileCreateTime(m pickerMediaItem) string {
	if m.MediaFile == nil {
		return ""
	}
	return m.MediaFile.CreateTime
}

func mediaFileMetaCreateTime(m pickerMediaItem) string {
	if m.MediaFile == nil || m.MediaFile.MediaFileMetadata == nil {
		return ""
	}
	return m.MediaFile.MediaFileMetadata.CreateTime
}

func mediaFileMetaWidth(m pickerMediaItem) int {
	if m.MediaFile == nil || m.MediaFile.MediaFileMetadata == nil {
		return 0
	}
	return m.MediaFile.MediaFileMetadata.Width.Int()
}

func mediaFileMetaHeight(m pickerMediaItem) int {
	if m.MediaFile == nil || m.MediaFile.MediaFileMetadata == nil {
		return 0
	}
	return m.MediaFile.MediaFileMetadata.Height.Int()
}

func mediaFileMetaLocation(m pickerMediaItem) *pickerLocation {
	if m.MediaFile == nil || m.MediaFile.MediaFileMetadata == nil {
		return nil
	}
	return m.MediaFile.MediaFileMetadata.Location
}

func firstLocation(a, b *pickerLocation) *pickerLocation {
	if a != nil {
		return a
	}
	return b
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// createTimeLayouts are tried in order; the first one that parses wins.
// Offset-bearing layouts preserve their zone; the bare layout is assumed UTC
// (naive timestamps carry no zone information to do otherwise).
var createTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseCreateTime parses a timestamp and normalizes it to UTC. Naive
// timestamps (no UTC offset) are assumed to already be UTC. Timestamps that
// don't match any known layout map to the Unix epoch in UTC.
func parseCreateTime(s string) time.Time {
	for _, layout := range createTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}
