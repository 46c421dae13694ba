package ai

// Prompt templates shared by the Gemini and Ollama providers.

// codeSummaryPrompt asks for a short per-file summary. The verb arguments are
// the file path and a bounded prefix of its content.
const codeSummaryPrompt = `Summarize the purpose of the %s file and its responsibilities in bullet points (max 5).

Here is the code:
%s`

// diffSummaryPrompt asks for a commit summary in the style of
// gpt-commit-summarizer output. The verb argument is the unified diff.
const diffSummaryPrompt = `You are an expert programmer, and you are trying to summarize a git diff.

Reminders about the git diff format:
For every file, there are a few metadata lines, like (for example):
` + "```" + `
diff --git a/lib/index.js b/lib/index.js
index aadf691..bfef603 100644
--- a/lib/index.js
+++ b/lib/index.js
` + "```" + `
This means that lib/index.js was modified in this commit. Note that this is only an example.
Then there is a specifier of the lines that were modified.
A line starting with + means it was added.
A line starting with - means that line was deleted.
A line that starts with neither + nor - is code given for context and better understanding.
It is not part of the diff.

EXAMPLE SUMMARY COMMENTS:
` + "```" + `
* Raised the amount of returned recordings from 10 to 100 [packages/server/recordings_api.ts], [packages/server/constants.ts]
* Fixed a typo in the github action name [.github/workflows/gpt-commit-summarizer.yml]
* Moved the octokit initialization to a separate file [src/octokit.ts], [src/index.ts]
* Added an OpenAI API for completions [packages/utils/apis/openai.ts]
* Lowered numeric tolerance for test files
` + "```" + `
Most commits will have less comments than this examples list.
The last comment does not include the file names, because there were more than
two relevant files in the hypothetical commit. Do not include parts of the
example in your summary; it is given only as an example of appropriate comments.

Please summarise the following diff file:

%s`

// answerPrompt grounds the generated answer in retrieved context. The verb
// arguments are the assembled context block and the question. When the
// context block is empty or unhelpful the model is instructed to say so
// rather than invent an answer.
const answerPrompt = `You are an AI code assistant who answers questions about a codebase. Your target audience is a technical intern.
You are knowledgeable, precise, and friendly, and you give step-by-step answers with code examples when the question is about code or a specific file.

START CONTEXT BLOCK
%s
END OF CONTEXT BLOCK

START QUESTION
%s
END OF QUESTION

Take into account any CONTEXT BLOCK that is provided.
Do not invent anything that is not drawn directly from the context.
If the context does not provide the answer, say "I'm sorry, but I don't have enough information from the codebase to answer that" instead of guessing.`
