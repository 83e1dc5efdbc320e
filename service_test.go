package drivesearch

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vettore/drivesearch/vector"
)

type driveSearchTestSuite struct {
	suite.Suite
	ctx context.Context
	cfg Config
	svc Service
}

func (suite *driveSearchTestSuite) SetupTest() {
	vector.ResetSharedStore()

	ctx := context.Background()

	cfg := Config{
		Vector: suite.writeArtifacts(
			[]string{"alpha", "beta", "gamma"},
			[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}},
		),
	}
	cfg.Vector.DefaultTopK = 2

	svc, err := NewService(ctx, cfg)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.ctx = ctx
	suite.cfg = cfg
	suite.svc = svc
}

func (suite *driveSearchTestSuite) TearDownTest() {
	vector.ResetSharedStore()
	suite.svc.Close()
}

// writeArtifacts produces an aligned artifact set: one npy row, one
// metadata entry and one extract line per id.
func (suite *driveSearchTestSuite) writeArtifacts(ids []string, embeddings [][]float32) vector.Config {
	dir := suite.T().TempDir()

	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }",
		len(embeddings), len(embeddings[0]))
	for (10+len(header)+1)%16 != 0 {
		header += " "
	}
	header += "\n"

	npy := append([]byte("\x93NUMPY"), 1, 0)
	npy = binary.LittleEndian.AppendUint16(npy, uint16(len(header)))
	npy = append(npy, header...)
	for _, row := range embeddings {
		for _, v := range row {
			npy = binary.LittleEndian.AppendUint32(npy, math.Float32bits(v))
		}
	}

	embeddingsPath := filepath.Join(dir, "embeddings.npy")
	if err := os.WriteFile(embeddingsPath, npy, 0o644); err != nil {
		suite.FailNow(err.Error())
	}

	entries := make([]string, len(ids))
	lines := make([]string, len(ids))
	for i, id := range ids {
		entries[i] = fmt.Sprintf(`{"id": %q, "name": "%s.pdf"}`, id, id)
		lines[i] = fmt.Sprintf(`{"text_extract": "contents of %s"}`, id)
	}

	metadataPath := filepath.Join(dir, "metadata.json")
	metadata := fmt.Sprintf(`{"items": [%s]}`, strings.Join(entries, ", "))
	if err := os.WriteFile(metadataPath, []byte(metadata), 0o644); err != nil {
		suite.FailNow(err.Error())
	}

	documentsPath := filepath.Join(dir, "documents.jsonl")
	if err := os.WriteFile(documentsPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		suite.FailNow(err.Error())
	}

	return vector.Config{
		Enabled:    true,
		Embeddings: embeddingsPath,
		Metadata:   metadataPath,
		Documents:  documentsPath,
	}
}

func (suite *driveSearchTestSuite) TestSearchWithEmbedding() {
	results, err := suite.svc.Search(suite.ctx, SearchRequest{
		QueryEmbedding: []float32{1, 0},
		TopK:           2,
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(results, 2)
	suite.Equal("alpha", results[0].Record.Metadata["id"])
	suite.Equal("gamma", results[1].Record.Metadata["id"])
	suite.InDelta(1.0, results[0].Score, 1e-6)
	suite.InDelta(0.6, results[1].Score, 1e-6)
}

func (suite *driveSearchTestSuite) TestSearchAppliesDefaultTopK() {
	results, err := suite.svc.Search(suite.ctx, SearchRequest{
		QueryEmbedding: []float32{0, 1},
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(results, 2, "configured default top-k should apply")
	suite.Equal("beta", results[0].Record.Metadata["id"])
}

func (suite *driveSearchTestSuite) TestSearchWithoutUsableQuery() {
	_, err := suite.svc.Search(suite.ctx, SearchRequest{})
	suite.ErrorIs(err, vector.ErrConfig)
}

func (suite *driveSearchTestSuite) TestSearchDisabled() {
	vector.ResetSharedStore()

	cfg := suite.cfg
	cfg.Vector.Enabled = false

	svc, err := NewService(suite.ctx, cfg)
	if err != nil {
		suite.Fail(err.Error())
		return
	}
	defer svc.Close()

	_, err = svc.Search(suite.ctx, SearchRequest{QueryEmbedding: []float32{1, 0}})
	suite.ErrorIs(err, vector.ErrNotAvailable)
}

func (suite *driveSearchTestSuite) TestIndexStatus() {
	status, err := suite.svc.IndexStatus(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(3, status.Records)
	suite.Equal(2, status.Dimensions)
	suite.False(status.EncoderAvailable)
}

func (suite *driveSearchTestSuite) TestProxiedSearch() {
	endpoints := &EndpointSet{
		Search:      SearchEndpoint(suite.svc),
		IndexStatus: IndexStatusEndpoint(suite.svc),
	}

	var proxied Service
	proxied = ProxyMiddleware(endpoints)(proxied)

	results, err := proxied.Search(suite.ctx, SearchRequest{
		QueryEmbedding: []float32{1, 0},
		TopK:           1,
	})
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Len(results, 1)
	suite.Equal("alpha", results[0].Record.Metadata["id"])

	status, err := proxied.IndexStatus(suite.ctx)
	if err != nil {
		suite.Fail(err.Error())
		return
	}

	suite.Equal(3, status.Records)
}

func TestDriveSearchTestSuite(t *testing.T) {
	suite.Run(t, new(driveSearchTestSuite))
}
