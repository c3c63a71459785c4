// Package catalog loads the operator-maintained list of known scrolls,
// per spec.md §6's Catalog JSON format: each entry names a scroll ID and
// carries enough fields to build a chain.ScrollDescriptor without a
// registry lookup.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

const (
	typeInlineDatum = "utxo_datum_bytes_v1"
	typeCip25Pages  = "cip25_pages_v1"
)

type rawEntry struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	PolicyID          string `json:"policy_id"`
	ManifestAsset     string `json:"manifest_asset"`
	TxHash            string `json:"tx_hash"`
	TxIx              uint32 `json:"tx_ix"`
	BlockSlot         uint64 `json:"block_slot"`
	BlockHash         string `json:"block_hash"`
	MaxScanBlocks     int    `json:"max_scan_blocks"`
	ContentType       string `json:"content_type"`
	SHA256            string `json:"sha256"`
}

type rawCatalog struct {
	Scrolls []rawEntry `json:"scrolls"`
}

// Entry is one catalog entry: an ID paired with the descriptor needed to
// reconstruct it.
type Entry struct {
	ID         string
	Descriptor chain.ScrollDescriptor
}

// Parse decodes catalog JSON into entries, keeping document order.
func Parse(data []byte) ([]Entry, error) {
	var raw rawCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &chain.MalformedError{Where: fmt.Sprintf("catalog: JSON decode: %v", err)}
	}

	out := make([]Entry, 0, len(raw.Scrolls))
	for _, re := range raw.Scrolls {
		desc, err := descriptorFromRaw(re)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{ID: re.ID, Descriptor: desc})
	}
	return out, nil
}

// Lookup returns the entry with the given ID, or chain.ErrNotFound.
func Lookup(entries []Entry, id string) (Entry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, &chain.NotFoundError{What: "catalog entry " + id}
}

func descriptorFromRaw(re rawEntry) (chain.ScrollDescriptor, error) {
	var expectedSHA []byte
	if re.SHA256 != "" {
		var err error
		expectedSHA, err = hex.DecodeString(re.SHA256)
		if err != nil {
			return chain.ScrollDescriptor{}, &chain.MalformedError{Where: "catalog: entry " + re.ID + " sha256 not hex"}
		}
	}

	switch re.Type {
	case typeInlineDatum:
		blockHash, err := hex.DecodeString(re.BlockHash)
		if err != nil {
			return chain.ScrollDescriptor{}, &chain.MalformedError{Where: "catalog: entry " + re.ID + " block_hash not hex"}
		}
		point, err := chain.NewPoint(re.BlockSlot, blockHash)
		if err != nil {
			return chain.ScrollDescriptor{}, err
		}
		var txID []byte
		if re.TxHash != "" {
			txID, err = hex.DecodeString(re.TxHash)
			if err != nil {
				return chain.ScrollDescriptor{}, &chain.MalformedError{Where: "catalog: entry " + re.ID + " tx_hash not hex"}
			}
		}
		return chain.ScrollDescriptor{InlineDatum: &chain.InlineDatumScroll{
			BlockPoint:     point,
			TxID:           txID,
			TxIx:           re.TxIx,
			ExpectedSHA256: expectedSHA,
			ContentType:    re.ContentType,
		}}, nil

	case typeCip25Pages:
		var startPoint chain.Point
		if re.BlockHash != "" {
			blockHash, err := hex.DecodeString(re.BlockHash)
			if err != nil {
				return chain.ScrollDescriptor{}, &chain.MalformedError{Where: "catalog: entry " + re.ID + " block_hash not hex"}
			}
			startPoint, err = chain.NewPoint(re.BlockSlot, blockHash)
			if err != nil {
				return chain.ScrollDescriptor{}, err
			}
		}
		return chain.ScrollDescriptor{Cip25Pages: &chain.Cip25PagesScroll{
			PolicyID:          re.PolicyID,
			ManifestAssetName: re.ManifestAsset,
			StartPoint:        startPoint,
			MaxScanBlocks:     re.MaxScanBlocks,
			ExpectedSHA256:    expectedSHA,
		}}, nil

	default:
		return chain.ScrollDescriptor{}, &chain.MalformedError{Where: "catalog: entry " + re.ID + " has unknown type " + re.Type}
	}
}
