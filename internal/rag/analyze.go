package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docassist/internal/contextutil"
)

// analysisConcurrency bounds how many analysis questions run at once.
const analysisConcurrency = 3

// analysisQuestions is the fixed, ordered question set every analysis runs.
var analysisQuestions = []string{
	"What is the main topic or theme of this document?",
	"Who is the target audience for this document?",
	"What are the main arguments or conclusions presented?",
	"Are there any important statistics or data points mentioned?",
	"What recommendations or action items are suggested?",
}

// QuestionAnswer pairs one analysis question with its answer.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// AnalysisResult holds the answers in the fixed question order. It marshals
// to a JSON object whose keys keep that order.
type AnalysisResult []QuestionAnswer

// MarshalJSON writes the result as an ordered object. encoding/json would
// sort map keys, losing the question ordering clients render by.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, qa := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(qa.Question)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(qa.Answer)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Analyze runs the fixed question set against the document, a few questions
// in flight at a time. Answers come back in question order regardless of
// completion order; any failed question fails the whole call.
func (e *Engine) Analyze(ctx context.Context, docID string) (AnalysisResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := e.docs.Get(docID); err != nil {
		return nil, err
	}

	answers := make([]string, len(analysisQuestions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)

	for i, question := range analysisQuestions {
		g.Go(func() error {
			result, err := e.retriever.Retrieve(gctx, docID, question, e.opts.AnalysisK)
			if err != nil {
				return fmt.Errorf("retrieval for %q failed: %w", question, err)
			}

			answer, err := e.generate(gctx, analysisPrompt(question, plainContext(result.Chunks)))
			if err != nil {
				return fmt.Errorf("generation for %q failed: %w", question, err)
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(AnalysisResult, len(analysisQuestions))
	for i, question := range analysisQuestions {
		result[i] = QuestionAnswer{Question: question, Answer: answers[i]}
	}

	logger.InfoContext(ctx, "analysis completed", "document_id", docID, "questions", len(analysisQuestions))
	return result, nil
}
