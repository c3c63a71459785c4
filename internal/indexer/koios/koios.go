// Package koios implements the indexer.Adapter surface (spec.md §4.J)
// against the Koios REST API. It mirrors internal/indexer/blockfrost's
// shape (the same four queries, the same request/normalize split) since
// both are instances of the one adapter surface the core depends on.
package koios

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// Adapter queries the Koios API for the four fallback reads.
type Adapter struct {
	baseURL string
	client  *http.Client
}

// New builds an Adapter. baseURL is e.g. "https://api.koios.rest/api/v1".
func New(baseURL string) *Adapter {
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) post(ctx context.Context, path string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &chain.MalformedError{Where: "koios: encode request body"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, &chain.TransportError{Op: "koios: build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &chain.TransportError{Op: "koios: " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, &chain.TransportError{Op: "koios: read body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &chain.TransportError{Op: "koios: " + path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody)}
	}
	return respBody, nil
}

type txInfo struct {
	TxHash       string `json:"tx_hash"`
	BlockHash    string `json:"block_hash"`
	AbsoluteSlot uint64 `json:"absolute_slot"`
}

// ResolveTxPoint implements indexer.Adapter.
func (a *Adapter) ResolveTxPoint(ctx context.Context, txHash string) (chain.Point, error) {
	body, err := a.post(ctx, "/tx_info", map[string]any{"_tx_hashes": []string{txHash}})
	if err != nil {
		return chain.Point{}, err
	}
	var infos []txInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return chain.Point{}, &chain.MalformedError{Where: "koios: /tx_info response: " + err.Error()}
	}
	if len(infos) == 0 {
		return chain.Point{}, &chain.NotFoundError{What: "koios: transaction " + txHash}
	}
	headerHash, err := hex.DecodeString(infos[0].BlockHash)
	if err != nil {
		return chain.Point{}, &chain.MalformedError{Where: "koios: block_hash not hex"}
	}
	return chain.NewPoint(infos[0].AbsoluteSlot, headerHash)
}

type txMetadata struct {
	TxHash string                     `json:"tx_hash"`
	Meta   map[string]json.RawMessage `json:"metadata"`
}

// Label721Metadata implements indexer.Adapter.
func (a *Adapter) Label721Metadata(ctx context.Context, txHash string) (any, bool, error) {
	body, err := a.post(ctx, "/tx_metadata", map[string]any{"_tx_hashes": []string{txHash}})
	if err != nil {
		return nil, false, err
	}
	var rows []txMetadata
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, false, &chain.MalformedError{Where: "koios: /tx_metadata response: " + err.Error()}
	}
	for _, row := range rows {
		raw, ok := row.Meta["721"]
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, false, &chain.MalformedError{Where: "koios: label-721 metadata: " + err.Error()}
		}
		v, err := cborutil.FromJSON(decoded)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return nil, false, nil
}

type policyAssetInfo struct {
	AssetName string `json:"asset_name"`
}

// AssetsUnderPolicy implements indexer.Adapter.
func (a *Adapter) AssetsUnderPolicy(ctx context.Context, policyID string) ([]string, error) {
	body, err := a.post(ctx, "/policy_asset_info", map[string]any{"_asset_policy": policyID})
	if err != nil {
		return nil, err
	}
	var assets []policyAssetInfo
	if err := json.Unmarshal(body, &assets); err != nil {
		return nil, &chain.MalformedError{Where: "koios: /policy_asset_info response: " + err.Error()}
	}
	names := make([]string, 0, len(assets))
	for _, a := range assets {
		if b, err := hex.DecodeString(a.AssetName); err == nil {
			names = append(names, cborutil.NormalizeAssetName(b))
		} else {
			names = append(names, a.AssetName)
		}
	}
	return names, nil
}

type txUTxOEntry struct {
	TxHash  string `json:"tx_hash"`
	Outputs []struct {
		TxIndex          int    `json:"tx_index"`
		InlineDatumValue struct {
			Bytes string `json:"bytes"`
		} `json:"inline_datum"`
	} `json:"outputs"`
}

// OutputInlineDatumBytes implements indexer.Adapter.
func (a *Adapter) OutputInlineDatumBytes(ctx context.Context, txHash string, ix uint32) ([]byte, error) {
	body, err := a.post(ctx, "/tx_utxos", map[string]any{"_tx_hashes": []string{txHash}})
	if err != nil {
		return nil, err
	}
	var rows []txUTxOEntry
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &chain.MalformedError{Where: "koios: /tx_utxos response: " + err.Error()}
	}
	for _, row := range rows {
		for _, o := range row.Outputs {
			if uint32(o.TxIndex) != ix {
				continue
			}
			if o.InlineDatumValue.Bytes == "" {
				return nil, &chain.NotFoundError{What: "koios: output carries no inline datum"}
			}
			return hex.DecodeString(o.InlineDatumValue.Bytes)
		}
	}
	return nil, &chain.NotFoundError{What: "koios: output index out of range"}
}
