package vectorstore

import (
	"github.com/qdrant/go-client/qdrant"

	"kb-engine/internal/domain/kbmodel"
)

// payloadFromChunk flattens the typed metadata into qdrant's scalar payload.
// Extra values are already strings; anything structured was JSON-encoded
// upstream.
func payloadFromChunk(chunk kbmodel.Chunk) map[string]any {
	payload := map[string]any{
		"content":      chunk.Content,
		"chunk_id":     chunk.ID,
		"knowledge_id": chunk.Metadata.KnowledgeID,
		"category_id":  chunk.Metadata.CategoryID,
		"file_name":    chunk.Metadata.FileName,
		"chunk_index":  chunk.Metadata.ChunkIndex,
	}
	if chunk.Metadata.ProcedureName != "" {
		payload["procedure_name"] = chunk.Metadata.ProcedureName
	}
	for k, v := range chunk.Metadata.Extra {
		if _, taken := payload[k]; taken {
			continue
		}
		payload[k] = v
	}
	return payload
}

var fixedPayloadFields = map[string]bool{
	"content": true, "chunk_id": true, "knowledge_id": true,
	"category_id": true, "file_name": true, "chunk_index": true,
	"procedure_name": true,
}

func chunkFromPayload(id string, score float32, payload map[string]*qdrant.Value) kbmodel.ScoredChunk {
	chunk := kbmodel.Chunk{
		ID:      payload["chunk_id"].GetStringValue(),
		Content: payload["content"].GetStringValue(),
		Metadata: kbmodel.ChunkMetadata{
			KnowledgeID:   payload["knowledge_id"].GetStringValue(),
			CategoryID:    payload["category_id"].GetStringValue(),
			FileName:      payload["file_name"].GetStringValue(),
			ProcedureName: payload["procedure_name"].GetStringValue(),
			ChunkIndex:    int(payload["chunk_index"].GetIntegerValue()),
		},
	}
	if chunk.ID == "" {
		chunk.ID = id
	}

	for k, v := range payload {
		if fixedPayloadFields[k] {
			continue
		}
		if s := v.GetStringValue(); s != "" {
			if chunk.Metadata.Extra == nil {
				chunk.Metadata.Extra = make(map[string]string)
			}
			chunk.Metadata.Extra[k] = s
		}
	}
	return kbmodel.ScoredChunk{Chunk: chunk, Score: score}
}

// filterConditions maps a Filter to qdrant must-clauses; list fields become
// keyword "in" matches.
func filterConditions(f Filter) []*qdrant.Condition {
	var must []*qdrant.Condition
	if f.KnowledgeID != "" {
		must = append(must, qdrant.NewMatch("knowledge_id", f.KnowledgeID))
	}
	if f.CategoryID != "" {
		must = append(must, qdrant.NewMatch("category_id", f.CategoryID))
	}
	if len(f.FileNames) > 0 {
		must = append(must, qdrant.NewMatchKeywords("file_name", f.FileNames...))
	}
	if len(f.ProcedureNames) > 0 {
		must = append(must, qdrant.NewMatchKeywords("procedure_name", f.ProcedureNames...))
	}
	return must
}
