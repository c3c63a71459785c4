// Package registry resolves the scroll registry head and list inline
// datums and merges multiple heads into a single name -> entry map, per
// spec.md §4.I.
package registry

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"

	"github.com/klauspost/compress/gzip"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// DatumFetcher resolves a TxRef to its output's inline datum bytes. Both
// the P2P core (block parser + BlockFetch) and the indexer fallback
// adapter satisfy this narrow surface, so the resolver works unmodified
// over either.
type DatumFetcher interface {
	FetchInlineDatum(ctx context.Context, ref chain.TxRef) ([]byte, error)
}

const (
	formatHead = "ledger-scrolls-registry-head"
	formatList = "ledger-scrolls-registry-list"

	pointerKindInlineDatum = "utxo-inline-datum-bytes-v1"
	pointerKindCip25       = "cip25-manifest-v1"
	pointerKindURL         = "url-v1"
)

type headDoc struct {
	Format       string       `json:"format"`
	RegistryList pointerJSON  `json:"registryList"`
}

type listDoc struct {
	Format  string      `json:"format"`
	Entries []entryJSON `json:"entries"`
}

type entryJSON struct {
	Name        string      `json:"name"`
	Pointer     pointerJSON `json:"pointer"`
	ContentType string      `json:"content_type"`
	SHA256      string      `json:"sha256"`
}

type pointerJSON struct {
	Kind              string `json:"kind"`
	TxHash            string `json:"tx_hash,omitempty"`
	TxIx              uint32 `json:"tx_ix,omitempty"`
	PolicyID          string `json:"policy_id,omitempty"`
	ManifestAssetName string `json:"manifest_asset_name,omitempty"`
	URL               string `json:"url,omitempty"`
}

// Resolver fetches and merges registry documents.
type Resolver struct {
	Fetcher DatumFetcher
}

// ResolveHead fetches head's inline datum and returns the list pointer
// it names.
func (r *Resolver) ResolveHead(ctx context.Context, head chain.TxRef) (chain.TxRef, error) {
	doc, err := fetchAndDecode[headDoc](ctx, r.Fetcher, head)
	if err != nil {
		return chain.TxRef{}, err
	}
	if doc.Format != formatHead {
		return chain.TxRef{}, &chain.MalformedError{Where: "registry: head format is " + doc.Format + ", want " + formatHead}
	}
	if doc.RegistryList.Kind != pointerKindInlineDatum {
		return chain.TxRef{}, &chain.MalformedError{Where: "registry: unsupported registryList pointer kind " + doc.RegistryList.Kind}
	}
	return txRefFromJSON(doc.RegistryList)
}

// ResolveList fetches list's inline datum and returns its entries.
func (r *Resolver) ResolveList(ctx context.Context, list chain.TxRef) ([]chain.RegistryEntry, error) {
	doc, err := fetchAndDecode[listDoc](ctx, r.Fetcher, list)
	if err != nil {
		return nil, err
	}
	if doc.Format != formatList {
		return nil, &chain.MalformedError{Where: "registry: list format is " + doc.Format + ", want " + formatList}
	}
	entries := make([]chain.RegistryEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		entry, err := entryFromJSON(e)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MergeHeads resolves each head in order and merges their lists' entries
// by name; later heads override earlier bindings, per spec.md §4.I.
func (r *Resolver) MergeHeads(ctx context.Context, heads []chain.TxRef) (map[string]chain.RegistryEntry, error) {
	merged := map[string]chain.RegistryEntry{}
	for _, head := range heads {
		listRef, err := r.ResolveHead(ctx, head)
		if err != nil {
			return nil, err
		}
		entries, err := r.ResolveList(ctx, listRef)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			merged[e.Name] = e
		}
	}
	return merged, nil
}

func fetchAndDecode[T any](ctx context.Context, fetcher DatumFetcher, ref chain.TxRef) (T, error) {
	var zero T
	raw, err := fetcher.FetchInlineDatum(ctx, ref)
	if err != nil {
		return zero, err
	}
	jsonBytes := tryGunzip(raw)
	var doc T
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return zero, &chain.MalformedError{Where: "registry: JSON decode failed: " + err.Error()}
	}
	return doc, nil
}

// tryGunzip opportunistically decompresses b if it looks like gzip;
// registry datums may or may not be compressed (spec.md §4.I says
// "attempts gzip decompression").
func tryGunzip(b []byte) []byte {
	if len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		return b
	}
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return b
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return b
	}
	return out.Bytes()
}

func txRefFromJSON(p pointerJSON) (chain.TxRef, error) {
	hash, err := hex.DecodeString(p.TxHash)
	if err != nil {
		return chain.TxRef{}, &chain.MalformedError{Where: "registry: pointer tx_hash not hex"}
	}
	return chain.TxRef{TxID: hash, Ix: p.TxIx}, nil
}

func entryFromJSON(e entryJSON) (chain.RegistryEntry, error) {
	var sha []byte
	if e.SHA256 != "" {
		var err error
		sha, err = hex.DecodeString(e.SHA256)
		if err != nil {
			return chain.RegistryEntry{}, &chain.MalformedError{Where: "registry: entry sha256 not hex"}
		}
	}
	entry := chain.RegistryEntry{Name: e.Name, ContentType: e.ContentType, SHA256: sha}
	switch e.Pointer.Kind {
	case pointerKindInlineDatum:
		ref, err := txRefFromJSON(e.Pointer)
		if err != nil {
			return chain.RegistryEntry{}, err
		}
		entry.Pointer.InlineUTxO = &ref
	case pointerKindCip25:
		entry.Pointer.Cip25Manifest = &chain.PolicyAsset{
			PolicyID:          e.Pointer.PolicyID,
			ManifestAssetName: e.Pointer.ManifestAssetName,
		}
	case pointerKindURL:
		entry.Pointer.URL = e.Pointer.URL
	default:
		return chain.RegistryEntry{}, &chain.MalformedError{Where: "registry: unsupported entry pointer kind " + e.Pointer.Kind}
	}
	return entry, nil
}
