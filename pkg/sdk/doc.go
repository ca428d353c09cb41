// Package lexrag provides an embedded Go client for the lexrag legal
// document retrieval engine backed by Redis with search modules.
//
// The client chunks, embeds, and indexes contract text, then answers
// queries with reranked retrieval, verified citations, and clause
// analysis — no HTTP server required:
//
//	client, err := lexrag.New(ctx,
//	    lexrag.WithRedis("localhost:6379", ""),
//	    lexrag.WithEmbedder(myEmbedder),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	res, _ := client.Ingest(ctx, lexrag.IngestRequest{
//	    UserID:   "firm-1",
//	    MatterID: "acme-v-initech",
//	    Name:     "MSA.pdf",
//	    Text:     contractText,
//	})
//
//	out, _ := client.Search(ctx, lexrag.SearchRequest{
//	    UserID: "firm-1",
//	    Query:  "What is the limitation of liability?",
//	})
//
// Reranking, citation extraction, and clause risk classification run
// offline by default with deterministic heuristics. Point them at HF TEI
// style inference endpoints with WithRerankerEndpoint,
// WithExtractorEndpoint, and WithClassifierEndpoint for model-backed
// quality.
package lexrag
