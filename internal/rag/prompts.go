package rag

import (
	"fmt"
	"strings"
)

// temperature used for every generation call.
const temperature = 0.7

const chatSystemPrompt = "Use the following context to answer the question. " +
	"If you don't know the answer based on the context, say so."

const emptyContextNote = "No relevant context was found in the document."

// chatUserMessage pairs the grounding context with the question.
func chatUserMessage(contextBlock, question string) string {
	if contextBlock == "" {
		contextBlock = emptyContextNote
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}

// contextFromChunks labels each retrieved passage with its page number.
func contextFromChunks(chunks []RetrievedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d] %s", chunk.Page, chunk.Text)
	}
	return b.String()
}

// plainContext joins chunk texts without page labels, for prompts that do
// not cite pages.
func plainContext(chunks []RetrievedChunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return strings.Join(texts, "\n")
}

func summaryPrompt(text string) string {
	return fmt.Sprintf("Write a concise summary of the following:\n\n%s\n\nCONCISE SUMMARY:", text)
}

func keyPointsPrompt(summary string) string {
	return fmt.Sprintf("Extract 5 key points from this document summary:\n\n%s\n\nFormat as a numbered list.", summary)
}

func analysisPrompt(question, contextBlock string) string {
	return fmt.Sprintf("Based on the following context, %s\n\nContext: %s\n\nAnswer:", question, contextBlock)
}
