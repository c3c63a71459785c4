package scroll

import (
	"bytes"
	"context"
	"crypto/sha256"

	"github.com/beacnpool/ledger-scrolls/internal/blockfetch"
	"github.com/beacnpool/ledger-scrolls/internal/blockparser"
	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
)

// P2PDatumFetcher adapts a BlockFetch client into internal/registry's
// DatumFetcher interface: resolving a TxRef requires knowing which block
// holds it, so callers must already have that Point (from a catalog
// entry or the indexer fallback's tx_hash -> Point query).
type P2PDatumFetcher struct {
	BlockFetch *blockfetch.Client
	Point      chain.Point
}

// FetchInlineDatum implements internal/registry.DatumFetcher.
func (f P2PDatumFetcher) FetchInlineDatum(ctx context.Context, ref chain.TxRef) ([]byte, error) {
	return fetchInlineDatumBytes(ctx, f.BlockFetch, f.Point, ref.TxID, ref.Ix)
}

// reconstructInline implements the inline-datum path, spec.md §4.H.
func reconstructInline(ctx context.Context, bf *blockfetch.Client, desc *chain.InlineDatumScroll) (chain.ScrollResult, error) {
	datumBytes, err := fetchInlineDatumBytes(ctx, bf, desc.BlockPoint, desc.TxID, desc.TxIx)
	if err != nil {
		return chain.ScrollResult{}, err
	}

	if desc.ExpectedSHA256 != nil {
		sum := sha256.Sum256(datumBytes)
		if !bytes.Equal(sum[:], desc.ExpectedSHA256) {
			return chain.ScrollResult{}, &chain.IntegrityFailureError{
				Which:    "sha256",
				Expected: cborutil.ToLowerHex(desc.ExpectedSHA256),
				Actual:   cborutil.ToLowerHex(sum[:]),
			}
		}
	}

	contentType := desc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	sum := sha256.Sum256(datumBytes)
	return chain.ScrollResult{
		Bytes:       datumBytes,
		ContentType: contentType,
		CodecUsed:   "none",
		SHA256:      sum[:],
	}, nil
}

// fetchInlineDatumBytes fetches the block at point, selects the
// transaction, and resolves outputs[ix]'s inline datum to raw bytes.
func fetchInlineDatumBytes(ctx context.Context, bf *blockfetch.Client, point chain.Point, txID []byte, ix uint32) ([]byte, error) {
	body, err := bf.FetchBlock(ctx, point)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &chain.NotFoundError{What: "block not found at " + point.String()}
	}
	block := blockparser.Parse(body)
	tx, err := selectTx(block, txID)
	if err != nil {
		return nil, err
	}
	return extractInlineDatumBytes(tx, ix)
}

// selectTx recomputes blake2b_256(tx_body) for every transaction in the
// block to find wantedTxID; if wantedTxID is nil, the block must contain
// exactly one transaction.
func selectTx(block *chain.Block, wantedTxID []byte) (chain.TxBody, error) {
	if wantedTxID == nil {
		if len(block.TxBodies) != 1 {
			return chain.TxBody{}, &chain.NotFoundError{What: "tx_id not given and block does not contain exactly one transaction"}
		}
		return block.TxBodies[0], nil
	}
	for _, tx := range block.TxBodies {
		id := cborutil.Blake2b256(tx.Raw)
		if bytes.Equal(id, wantedTxID) {
			return tx, nil
		}
	}
	return chain.TxBody{}, &chain.NotFoundError{What: "transaction " + cborutil.ToLowerHex(wantedTxID) + " not in block"}
}

// extractInlineDatumBytes locates outputs[ix]'s datum_option field and
// resolves it to the scroll's raw bytes, per spec.md §4.H step 3: an
// inline datum's payload may be CBOR-wrapped bytes that must be decoded
// once more to reach either a raw byte string or a structure, which is
// then re-encoded canonically.
func extractInlineDatumBytes(tx chain.TxBody, ix uint32) ([]byte, error) {
	decoded, ok := tx.Decoded.(cborutil.Value)
	if !ok {
		return nil, &chain.MalformedError{Where: "scroll: tx body was not decoded to a cborutil.Value"}
	}
	decoded = decoded.Unwrap()
	if decoded.Kind != cborutil.KindMap {
		return nil, &chain.MalformedError{Where: "scroll: tx body is not a CBOR map"}
	}
	outputsVal, ok := decoded.MapLookup(cborutil.IntKeyEqual(1))
	if !ok {
		return nil, &chain.NotFoundError{What: "tx body carries no outputs field"}
	}
	outputsVal = outputsVal.Unwrap()
	if outputsVal.Kind != cborutil.KindArray || int(ix) >= len(outputsVal.Array) {
		return nil, &chain.NotFoundError{What: "output index out of range"}
	}
	output := outputsVal.Array[ix].Unwrap()
	if output.Kind != cborutil.KindMap {
		return nil, &chain.NotFoundError{What: "output carries no inline datum (pre-Babbage output form)"}
	}
	datumOption, ok := output.MapLookup(cborutil.IntKeyEqual(2))
	if !ok {
		return nil, &chain.NotFoundError{What: "output carries no datum_option"}
	}
	datumOption = datumOption.Unwrap()
	if datumOption.Kind != cborutil.KindArray || len(datumOption.Array) < 2 {
		return nil, &chain.MalformedError{Where: "scroll: datum_option is not a 2-element array"}
	}
	discriminant, _ := datumOption.Array[0].Int()
	if discriminant != 1 {
		return nil, &chain.NotFoundError{What: "output datum is a hash reference, not an inline datum"}
	}
	return resolveDatumPayload(datumOption.Array[1])
}

// resolveDatumPayload turns the datum_option payload into raw bytes: if
// it unwraps to a CBOR byte string, that byte string is itself decoded
// once more; a resulting byte string is the scroll as-is, anything else
// is re-encoded canonically so it always ends up as bytes.
func resolveDatumPayload(v cborutil.Value) ([]byte, error) {
	v = v.Unwrap()
	if v.Kind != cborutil.KindBytes {
		return cborutil.Reencode(v)
	}
	inner, err := cborutil.Decode(v.Bytes)
	if err != nil {
		// Not itself further CBOR; treat the bytes as the scroll directly.
		return v.Bytes, nil
	}
	inner = inner.Unwrap()
	if b, ok := inner.AsBytes(); ok {
		return b, nil
	}
	return cborutil.Reencode(inner)
}
