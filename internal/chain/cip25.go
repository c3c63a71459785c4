package chain

// Asset721 is a single CIP-25 asset record normalized out of the raw
// label-721 metadata map: policy as lower-case hex, asset name decoded to
// UTF-8 where it decodes cleanly and to hex otherwise, and the field map
// with keys lower-cased.
type Asset721 struct {
	PolicyID  string
	AssetName string
	Fields    map[string]any
}

// Page is a classified CIP-25 asset carrying an ordered byte segment of a
// scroll. Index is -1 when the asset carried no "i"/"index" field.
type Page struct {
	AssetName string
	Index     int
	Segments  [][]byte
}

// Manifest is the distinguished CIP-25 asset describing a scroll's codec,
// content type, page count and digests.
type Manifest struct {
	AssetName    string
	TotalPages   int // 0 if absent
	HasTotal     bool
	Codec        string // "", "gzip", or "none"
	ContentType  string
	SHA256       []byte // nil if absent
	SHA256Gz     []byte // nil if absent
}
