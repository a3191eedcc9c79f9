package handlers

import (
	"html/template"
	"net/http"
)

const apiDocsHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>LLM Arena API Documentation</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            padding: 20px;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 12px;
            box-shadow: 0 20px 60px rgba(0, 0, 0, 0.3);
            overflow: hidden;
        }

        header {
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: white;
            padding: 40px;
            text-align: center;
        }

        h1 {
            font-size: 42px;
            margin-bottom: 10px;
        }

        .version {
            display: inline-block;
            padding: 6px 16px;
            background: rgba(100, 150, 255, 0.3);
            border-radius: 20px;
            font-size: 14px;
            margin-bottom: 10px;
        }

        .subtitle {
            color: rgba(255, 255, 255, 0.8);
            font-size: 18px;
        }

        nav {
            background: #f8f9fa;
            padding: 20px 40px;
            border-bottom: 2px solid #e9ecef;
        }

        nav h2 {
            margin-bottom: 15px;
            color: #495057;
            font-size: 18px;
        }

        nav ul {
            list-style: none;
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 10px;
        }

        nav a {
            color: #667eea;
            text-decoration: none;
            padding: 8px 12px;
            border-radius: 6px;
            display: block;
            transition: background 0.2s;
        }

        nav a:hover {
            background: #e9ecef;
        }

        main {
            padding: 40px;
        }

        section {
            margin-bottom: 50px;
        }

        h2 {
            color: #1a1a2e;
            font-size: 28px;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 3px solid #667eea;
        }

        h3 {
            color: #495057;
            font-size: 20px;
            margin: 25px 0 15px;
        }

        .endpoint {
            background: #f8f9fa;
            border-left: 4px solid #667eea;
            border-radius: 6px;
            padding: 20px;
            margin-bottom: 20px;
        }

        .method {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 4px;
            font-weight: bold;
            font-size: 13px;
            margin-right: 10px;
        }

        .method.get { background: #28a745; color: white; }
        .method.post { background: #007bff; color: white; }

        .path {
            font-family: 'Courier New', monospace;
            font-size: 16px;
            font-weight: bold;
            color: #1a1a2e;
        }

        .description {
            margin: 10px 0;
            color: #6c757d;
        }

        pre {
            background: #1a1a2e;
            color: #e9ecef;
            padding: 15px;
            border-radius: 6px;
            overflow-x: auto;
            font-size: 14px;
            margin: 10px 0;
        }

        footer {
            background: #f8f9fa;
            padding: 20px 40px;
            text-align: center;
            color: #6c757d;
            border-top: 2px solid #e9ecef;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>🏟️ LLM Arena API</h1>
            <div class="version">Version 1.0.0</div>
            <p class="subtitle">Blind comparative evaluation of language models with Elo leaderboards</p>
        </header>

        <nav>
            <h2>Quick Navigation</h2>
            <ul>
                <li><a href="#overview">Overview</a></li>
                <li><a href="#battles">Battles</a></li>
                <li><a href="#leaderboard">Leaderboard</a></li>
                <li><a href="#websocket">WebSocket</a></li>
                <li><a href="#errors">Errors</a></li>
                <li><a href="#models">Data Models</a></li>
            </ul>
        </nav>

        <main>
            <section id="overview">
                <h2>Overview</h2>
                <p>The LLM Arena API pits two language models against each other on the same question:</p>
                <ul>
                    <li>Start a battle: both models answer concurrently, identities hidden</li>
                    <li>Cast a verdict: win, draw, or invalid</li>
                    <li>Ratings update via Elo (K=32, starting at 1500)</li>
                    <li>Optional per-user leaderboards alongside the global one</li>
                </ul>

                <h3>Base URL</h3>
                <pre>http://localhost:9029/api</pre>
            </section>

            <section id="battles">
                <h2>Battles</h2>

                <div class="endpoint">
                    <span class="method get">GET</span>
                    <span class="path">/models</span>
                    <p class="description">List the models available for battles</p>
                </div>

                <div class="endpoint">
                    <span class="method post">POST</span>
                    <span class="path">/battle</span>
                    <p class="description">Start a battle: both models answer the question concurrently</p>
                    <pre>{
  "model1": "gpt-4o-mini",
  "model2": "claude-3-haiku",
  "question": "Explain TCP slow start in two paragraphs."
}</pre>
                    <p class="description">Response:</p>
                    <pre>{
  "battleId": "9f2c4a1d8e03b657",
  "model1": "gpt-4o-mini",
  "model2": "claude-3-haiku",
  "question": "Explain TCP slow start in two paragraphs.",
  "response1": "...",
  "response2": "...",
  "outcome": "pending"
}</pre>
                </div>

                <div class="endpoint">
                    <span class="method post">POST</span>
                    <span class="path">/vote</span>
                    <p class="description">Resolve a battle with a verdict. Each battle accepts exactly one vote. Include userId to also update that user's personal leaderboard.</p>
                    <pre>{
  "battleId": "9f2c4a1d8e03b657",
  "result": "model1",
  "userId": "alice"
}</pre>
                    <p class="description">result is one of: model1, model2, draw, invalid</p>
                </div>
            </section>

            <section id="leaderboard">
                <h2>Leaderboard</h2>

                <div class="endpoint">
                    <span class="method get">GET</span>
                    <span class="path">/leaderboard</span>
                    <p class="description">Global standings sorted by Elo. Pass ?userId=alice for a personal leaderboard.</p>
                </div>
            </section>

            <section id="websocket">
                <h2>WebSocket</h2>

                <div class="endpoint">
                    <span class="method get">GET</span>
                    <span class="path">/ws/leaderboard</span>
                    <p class="description">Subscribe to live leaderboard updates. The server pushes a message after every resolved battle:</p>
                    <pre>{
  "type": "leaderboard_update",
  "entries": [ ... ]
}</pre>
                </div>
            </section>

            <section id="errors">
                <h2>Errors</h2>
                <p>Errors use a consistent JSON shape:</p>
                <pre>{ "error": "Battle already has a recorded outcome" }</pre>
                <ul>
                    <li><strong>400</strong> — malformed request, unknown model, unknown verdict, or oversized question</li>
                    <li><strong>404</strong> — unknown battle id</li>
                    <li><strong>409</strong> — battle already resolved (double vote)</li>
                    <li><strong>429</strong> — rate limit exceeded (see Retry-After header)</li>
                    <li><strong>502 / 504</strong> — an upstream model call failed or timed out; nothing is persisted</li>
                </ul>
            </section>

            <section id="models">
                <h2>Data Models</h2>

                <h3>Leaderboard Entry</h3>
                <pre>{
  "rank": 1,
  "id": "gpt-4o-mini",
  "name": "GPT-4o Mini",
  "wins": 12,
  "losses": 4,
  "draws": 2,
  "invalid": 1,
  "elo": 1547.3
}</pre>

                <h3>Battle</h3>
                <pre>{
  "battleId": "9f2c4a1d8e03b657",
  "model1": "gpt-4o-mini",
  "model2": "claude-3-haiku",
  "question": "...",
  "response1": "...",
  "response2": "...",
  "outcome": "model1",
  "winnerModelId": "gpt-4o-mini",
  "voterId": "alice",
  "createdAt": "2026-02-09T10:00:00Z",
  "resolvedAt": "2026-02-09T10:05:00Z"
}</pre>
            </section>
        </main>

        <footer>
            <p>LLM Arena Version 1.0.0</p>
        </footer>
    </div>
</body>
</html>`

func ServeAPIDocs(w http.ResponseWriter, r *http.Request) {
	tmpl := template.Must(template.New("docs").Parse(apiDocsHTML))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tmpl.Execute(w, nil)
}
