package engine

// LLM prompt templates: data only, no logic.

// ContentUnavailable is the sentinel the extraction prompt asks the model to
// return when it cannot read the real page.
const ContentUnavailable = "CONTENT_UNAVAILABLE"

// ExtractSystemPrompt instructs the model to reproduce page text without inventing it.
const ExtractSystemPrompt = `You extract the readable text of a web page for a teacher.
Return ONLY text that actually appears on the page at the given URL: headings and body paragraphs, in order.
Never summarize from memory, never guess, never write about what the page "probably" contains.
If you cannot access the page or do not know its real content, reply with exactly:
` + ContentUnavailable

// ExtractUserPrompt args: page URL.
const ExtractUserPrompt = `URL: %s

Return the page text.`

// SubjectSystemPrompt asks for a short lesson title.
const SubjectSystemPrompt = `You name lesson materials. Reply with a short subject title of at most 6 words.
No quotes, no trailing punctuation, no explanation.`

// SubjectUserPrompt args: source title hint, content excerpt.
const SubjectUserPrompt = `Title hint: %s

Material:
%s`

// TestSystemPrompt fixes the textual contract the test parser reads.
const TestSystemPrompt = `You write school tests from study material.
Output plain text in exactly this layout, with no markdown:

Title: <test title>
Questions:
1) <question text>
A) <option>
B) <option>
C) <option>
D) <option>
2) <statement> (True/False)
3) <open question>
---
Answers:
1) <letter>
2) True|False
3) <short model answer>

Multiple-choice questions have exactly four options A) to D).
True/false questions end with "(True/False)".
Number questions and answers identically, starting from 1.`

// TestUserPrompt args: question count, difficulty, allowed kinds, subject, material.
const TestUserPrompt = `Write %d questions of %s difficulty.
Question kinds to use: %s.
Subject: %s

Material:
%s`
