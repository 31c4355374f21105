package http

import "net/http"

// handleIndex renders the upload UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>DocAnalyzer</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #222; }
        section { border: 1px solid #ddd; border-radius: 6px; padding: 1rem 1.25rem; margin-bottom: 1.5rem; }
        textarea, input[type=text] { width: 100%; box-sizing: border-box; margin: .25rem 0 .75rem; }
        pre { white-space: pre-wrap; background: #f6f6f6; padding: .75rem; border-radius: 4px; }
        .muted { color: #777; font-size: .9rem; }
    </style>
</head>
<body>
    <header>
        <h1>DocAnalyzer</h1>
        <p class="muted">Summarize documents and ask questions about them. PDF, DOCX, TXT, Markdown and HTML.</p>
    </header>

    <section>
        <h2>Summarize</h2>
        <form id="summarize-form">
            <input type="file" name="file" required>
            <button type="submit">Summarize</button>
        </form>
        <pre id="summary-out" hidden></pre>
    </section>

    <section>
        <h2>Ask a question</h2>
        <form id="qa-form">
            <label>Question <input type="text" name="question" required></label>
            <label>Context file <input type="file" name="context_file"></label>
            <label>or paste context <textarea name="context_text" rows="6"></textarea></label>
            <button type="submit">Ask</button>
        </form>
        <pre id="qa-out" hidden></pre>
    </section>

    <script>
        async function submit(form, url, out, render) {
            out.hidden = false;
            out.textContent = 'Working...';
            const body = new FormData(form);
            const file = body.get('context_file');
            if (file && file.size === 0) body.delete('context_file');
            try {
                const res = await fetch(url, { method: 'POST', body });
                const data = await res.json();
                out.textContent = res.ok ? render(data) : 'Error: ' + data.error;
            } catch (err) {
                out.textContent = 'Connection error';
            }
        }

        document.getElementById('summarize-form').addEventListener('submit', e => {
            e.preventDefault();
            submit(e.target, '/api/summarize', document.getElementById('summary-out'), d => d.summary);
        });

        document.getElementById('qa-form').addEventListener('submit', e => {
            e.preventDefault();
            submit(e.target, '/api/qa', document.getElementById('qa-out'),
                d => d.answer + '\n\nconfidence: ' + d.confidence.toFixed(3) + (d.context_used ? '\n\n' + d.context_used : ''));
        });
    </script>
</body>
</html>`
