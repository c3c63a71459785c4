package scroll

import (
	"bytes"
	"context"
	"crypto/sha256"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/beacnpool/ledger-scrolls/internal/blockfetch"
	"github.com/beacnpool/ledger-scrolls/internal/blockparser"
	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/chainsync"
	"github.com/beacnpool/ledger-scrolls/internal/cip25"
)

// defaultIdleTimeout bounds a reconstruction scan with no forward
// progress, per spec.md §5.
const defaultIdleTimeout = 60 * time.Second

// gzipMagic is the two leading bytes of every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// reconstructCip25Pages implements the CIP-25 pages path, spec.md §4.H.
func reconstructCip25Pages(ctx context.Context, cs *chainsync.Client, bf *blockfetch.Client, desc *chain.Cip25PagesScroll) (chain.ScrollResult, error) {
	_, _, found, err := cs.FindIntersect(ctx, []chain.Point{desc.StartPoint})
	if err != nil {
		return chain.ScrollResult{}, err
	}
	if !found {
		return chain.ScrollResult{}, &chain.NotFoundError{What: "start point not found on relay's chain"}
	}

	// MaxScanBlocks <= 0 leaves the scan bounded only by the manifest's
	// page total and the idle timeout.
	maxScan := desc.MaxScanBlocks

	var pages []chain.Page
	var manifest *chain.Manifest
	seenNames := map[string]bool{}

	scanned := 0
	lastProgress := time.Now()
	for maxScan <= 0 || scanned < maxScan {
		if time.Since(lastProgress) > defaultIdleTimeout {
			break
		}
		headers, err := cs.StreamHeaders(ctx, 1, defaultIdleTimeout)
		if err != nil {
			return chain.ScrollResult{}, err
		}
		if len(headers) == 0 {
			break
		}
		lastProgress = time.Now()
		scanned++

		body, err := bf.FetchBlock(ctx, headers[0].Point)
		if err != nil {
			return chain.ScrollResult{}, err
		}
		if body == nil {
			continue
		}
		block := blockparser.Parse(body)

		newPages, newManifest, err := collectCip25(block, desc.PolicyID, desc.ManifestAssetName)
		if err != nil {
			return chain.ScrollResult{}, err
		}
		pages = append(pages, newPages...)
		for _, p := range newPages {
			seenNames[p.AssetName] = true
		}
		if newManifest != nil && manifest == nil {
			manifest = newManifest
		}

		if manifest != nil && manifest.HasTotal && len(seenNames) >= manifest.TotalPages {
			break
		}
	}

	concatenated, err := orderAndConcat(pages)
	if err != nil {
		return chain.ScrollResult{}, err
	}
	if manifest != nil && manifest.HasTotal && countDistinctPages(pages) > manifest.TotalPages {
		return chain.ScrollResult{}, &chain.MalformedError{Where: "scroll: more distinct pages than manifest declares"}
	}

	if manifest != nil && manifest.SHA256Gz != nil {
		sum := sha256.Sum256(concatenated)
		if !bytes.Equal(sum[:], manifest.SHA256Gz) {
			return chain.ScrollResult{}, &chain.IntegrityFailureError{
				Which:    "sha256_gz",
				Expected: cborutil.ToLowerHex(manifest.SHA256Gz),
				Actual:   cborutil.ToLowerHex(sum[:]),
			}
		}
	}

	codecUsed := "none"
	decoded := concatenated
	useGzip := bytes.HasPrefix(concatenated, gzipMagic)
	if manifest != nil && manifest.Codec == "gzip" {
		useGzip = true
	}
	if useGzip {
		out, err := gunzip(concatenated)
		if err != nil {
			return chain.ScrollResult{}, &chain.MalformedError{Where: "scroll: gzip decompression failed: " + err.Error()}
		}
		decoded = out
		codecUsed = "gzip"
	}

	expected := desc.ExpectedSHA256
	if expected == nil && manifest != nil {
		expected = manifest.SHA256
	}
	sum := sha256.Sum256(decoded)
	if expected != nil && !bytes.Equal(sum[:], expected) {
		return chain.ScrollResult{}, &chain.IntegrityFailureError{
			Which:    "sha256",
			Expected: cborutil.ToLowerHex(expected),
			Actual:   cborutil.ToLowerHex(sum[:]),
		}
	}

	contentType := "application/octet-stream"
	if manifest != nil && manifest.ContentType != "" {
		contentType = manifest.ContentType
	}
	return chain.ScrollResult{
		Bytes:       decoded,
		ContentType: contentType,
		CodecUsed:   codecUsed,
		SHA256:      sum[:],
	}, nil
}

func countDistinctPages(pages []chain.Page) int {
	names := map[string]bool{}
	for _, p := range pages {
		names[p.AssetName] = true
	}
	return len(names)
}

// collectCip25 scans every label-721 metadata entry in block for
// wantedPolicy and classifies its assets.
func collectCip25(block *chain.Block, wantedPolicy, manifestAssetName string) ([]chain.Page, *chain.Manifest, error) {
	var pages []chain.Page
	var manifest *chain.Manifest
	for _, aux := range block.TxIndexAux {
		raw, ok := aux[chain.LabelCIP25]
		if !ok {
			continue
		}
		assets, err := cip25.Extract(raw, wantedPolicy)
		if err != nil {
			return nil, nil, err
		}
		if len(assets) == 0 {
			continue
		}
		p, m, err := cip25.Classify(assets, manifestAssetName)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, p...)
		if m != nil {
			manifest = m
		}
	}
	return pages, manifest, nil
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
