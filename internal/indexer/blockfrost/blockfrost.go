// Package blockfrost implements the indexer.Adapter surface (spec.md
// §4.J) against the BlockFrost API, adapted from the teacher's
// backend/blockfrost chain context: the same request() helper shape,
// generalized from ledger-building queries to the four read-only
// queries a scroll reconstruction needs.
package blockfrost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Adapter queries the BlockFrost API for the four fallback reads.
type Adapter struct {
	baseURL   string
	projectID string
	client    *http.Client
}

// New builds an Adapter. baseURL is e.g. "https://cardano-mainnet.blockfrost.io/api",
// with or without the "/v0" version path; it is appended if missing. A
// URL that ends in neither "/api" nor "/api/v0" is used as given.
func New(baseURL, projectID string) *Adapter {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/api") {
		baseURL += "/v0"
	}
	return &Adapter{
		baseURL:   baseURL,
		projectID: projectID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, &chain.TransportError{Op: "blockfrost: build request", Err: err}
	}
	req.Header.Set("project_id", a.projectID)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &chain.TransportError{Op: "blockfrost: " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, &chain.TransportError{Op: "blockfrost: read body", Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &chain.NotFoundError{What: "blockfrost: " + path}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &chain.TransportError{Op: "blockfrost: " + path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}
	return body, nil
}

type txResponse struct {
	Block string `json:"block"`
	Slot  uint64 `json:"slot"`
}

// ResolveTxPoint implements indexer.Adapter.
func (a *Adapter) ResolveTxPoint(ctx context.Context, txHash string) (chain.Point, error) {
	body, err := a.get(ctx, "/txs/"+txHash)
	if err != nil {
		return chain.Point{}, err
	}
	var tx txResponse
	if err := json.Unmarshal(body, &tx); err != nil {
		return chain.Point{}, &chain.MalformedError{Where: "blockfrost: /txs response: " + err.Error()}
	}
	headerHash, err := hex.DecodeString(tx.Block)
	if err != nil {
		return chain.Point{}, &chain.MalformedError{Where: "blockfrost: block hash not hex"}
	}
	return chain.NewPoint(tx.Slot, headerHash)
}

type metadataEntry struct {
	Label        string          `json:"label"`
	JSONMetadata json.RawMessage `json:"json_metadata"`
}

// Label721Metadata implements indexer.Adapter.
func (a *Adapter) Label721Metadata(ctx context.Context, txHash string) (any, bool, error) {
	body, err := a.get(ctx, "/txs/"+txHash+"/metadata")
	if err != nil {
		var nf *chain.NotFoundError
		if errors.As(err, &nf) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var entries []metadataEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, false, &chain.MalformedError{Where: "blockfrost: /metadata response: " + err.Error()}
	}
	for _, e := range entries {
		if e.Label != "721" {
			continue
		}
		var decoded any
		if err := json.Unmarshal(e.JSONMetadata, &decoded); err != nil {
			return nil, false, &chain.MalformedError{Where: "blockfrost: label-721 json_metadata: " + err.Error()}
		}
		v, err := cborutil.FromJSON(decoded)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, nil
}

type policyAsset struct {
	Asset string `json:"asset"`
}

// AssetsUnderPolicy implements indexer.Adapter.
func (a *Adapter) AssetsUnderPolicy(ctx context.Context, policyID string) ([]string, error) {
	body, err := a.get(ctx, "/assets/policy/"+policyID)
	if err != nil {
		return nil, err
	}
	var assets []policyAsset
	if err := json.Unmarshal(body, &assets); err != nil {
		return nil, &chain.MalformedError{Where: "blockfrost: /assets/policy response: " + err.Error()}
	}
	names := make([]string, 0, len(assets))
	for _, a := range assets {
		assetName := strings.TrimPrefix(a.Asset, policyID)
		if b, err := hex.DecodeString(assetName); err == nil {
			names = append(names, cborutil.NormalizeAssetName(b))
		} else {
			names = append(names, assetName)
		}
	}
	return names, nil
}

type txOutput struct {
	OutputIndex int             `json:"output_index"`
	InlineDatum json.RawMessage `json:"inline_datum"`
	DataHash    string          `json:"data_hash"`
}

type txUTxOs struct {
	Outputs []txOutput `json:"outputs"`
}

// OutputInlineDatumBytes implements indexer.Adapter. BlockFrost reports
// the inline datum as a plain CBOR-hex string field in its own schema
// (not json_metadata); that string is hex-decoded to the datum bytes.
func (a *Adapter) OutputInlineDatumBytes(ctx context.Context, txHash string, ix uint32) ([]byte, error) {
	body, err := a.get(ctx, "/txs/"+txHash+"/utxos")
	if err != nil {
		return nil, err
	}
	var utxos txUTxOs
	if err := json.Unmarshal(body, &utxos); err != nil {
		return nil, &chain.MalformedError{Where: "blockfrost: /utxos response: " + err.Error()}
	}
	for _, o := range utxos.Outputs {
		if uint32(o.OutputIndex) != ix {
			continue
		}
		if len(o.InlineDatum) == 0 || string(o.InlineDatum) == "null" {
			return nil, &chain.NotFoundError{What: "blockfrost: output carries no inline datum"}
		}
		var hexDatum string
		if err := json.Unmarshal(o.InlineDatum, &hexDatum); err != nil {
			return nil, &chain.MalformedError{Where: "blockfrost: inline_datum not a hex string"}
		}
		return hex.DecodeString(hexDatum)
	}
	return nil, &chain.NotFoundError{What: "blockfrost: output index out of range"}
}
