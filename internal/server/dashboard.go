package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const reviewDashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Sentinel</title>
    <meta name="description" content="Transaction fraud monitoring">
    <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>&#9673;</text></svg>">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg: #09090b;
            --bg-subtle: #18181b;
            --border: #27272a;
            --text: #fafafa;
            --text-secondary: #a1a1aa;
            --green: #22c55e;
            --amber: #f59e0b;
            --red: #ef4444;
        }

        body {
            font-family: -apple-system, 'Inter', sans-serif;
            background: var(--bg);
            color: var(--text);
            min-height: 100vh;
            font-size: 14px;
            line-height: 1.5;
        }

        .container { max-width: 1100px; margin: 0 auto; padding: 0 24px; }

        header {
            border-bottom: 1px solid var(--border);
            padding: 16px 0;
        }
        .header-inner { display: flex; justify-content: space-between; align-items: center; }
        .logo { font-weight: 600; font-size: 16px; }
        .logo span { color: var(--text-secondary); font-weight: 400; }

        section { margin: 32px 0; }
        h2 { font-size: 13px; text-transform: uppercase; letter-spacing: 0.05em; color: var(--text-secondary); margin-bottom: 12px; }

        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid var(--border); }
        th { color: var(--text-secondary); font-weight: 500; font-size: 12px; }
        td.mono { font-family: ui-monospace, monospace; font-size: 13px; }

        .decision { padding: 2px 8px; border-radius: 4px; font-size: 12px; }
        .decision.auto_approve { color: var(--green); background: rgba(34,197,94,.1); }
        .decision.manual_review { color: var(--amber); background: rgba(245,158,11,.1); }
        .decision.blocked { color: var(--red); background: rgba(239,68,68,.1); }

        .empty { color: var(--text-secondary); padding: 24px 12px; }
        #live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; background: var(--red); margin-right: 6px; }
        #live-dot.connected { background: var(--green); }
    </style>
</head>
<body>
    <header>
        <div class="container header-inner">
            <div class="logo">Sentinel <span>/ review queue</span></div>
            <div><span id="live-dot"></span><span id="live-label">connecting</span></div>
        </div>
    </header>
    <div class="container">
        <section>
            <h2>Pending manual reviews</h2>
            <table>
                <thead><tr><th>Transaction</th><th>Score</th><th>Decision</th><th>Rules</th><th>Created</th></tr></thead>
                <tbody id="reviews"><tr><td colspan="5" class="empty">Loading&hellip;</td></tr></tbody>
            </table>
        </section>
        <section>
            <h2>Live assessments</h2>
            <table>
                <thead><tr><th>Transaction</th><th>Account</th><th>Amount</th><th>Decision</th><th>Score</th></tr></thead>
                <tbody id="live"><tr><td colspan="5" class="empty">Waiting for events&hellip;</td></tr></tbody>
            </table>
        </section>
    </div>
    <script>
        function esc(s) {
            return String(s).replace(/[&<>"]/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c]));
        }

        async function loadReviews() {
            const res = await fetch('/v1/reviews?limit=100');
            const body = await res.json();
            const rows = (body.assessments || []).map(a =>
                '<tr><td class="mono">' + esc(a.transactionId) + '</td>' +
                '<td class="mono">' + a.riskScore.toFixed(3) + '</td>' +
                '<td><span class="decision ' + esc(a.decision) + '">' + esc(a.decision) + '</span></td>' +
                '<td>' + (a.triggeredRules || []).map(r => esc(r.name)).join(', ') + '</td>' +
                '<td class="mono">' + esc(a.createdAt) + '</td></tr>'
            );
            document.getElementById('reviews').innerHTML =
                rows.length ? rows.join('') : '<tr><td colspan="5" class="empty">Queue is clear.</td></tr>';
        }

        let liveRows = [];
        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws');
            ws.onopen = () => {
                document.getElementById('live-dot').classList.add('connected');
                document.getElementById('live-label').textContent = 'live';
            };
            ws.onclose = () => {
                document.getElementById('live-dot').classList.remove('connected');
                document.getElementById('live-label').textContent = 'reconnecting';
                setTimeout(connect, 3000);
            };
            ws.onmessage = ev => {
                const msg = JSON.parse(ev.data);
                const d = msg.data || {};
                if (!d.transactionId) return;
                liveRows.unshift(
                    '<tr><td class="mono">' + esc(d.transactionId) + '</td>' +
                    '<td class="mono">' + esc(d.accountId) + '</td>' +
                    '<td class="mono">' + Number(d.amount).toFixed(2) + '</td>' +
                    '<td><span class="decision ' + esc(d.decision) + '">' + esc(d.decision) + '</span></td>' +
                    '<td class="mono">' + Number(d.riskScore).toFixed(3) + '</td></tr>'
                );
                liveRows = liveRows.slice(0, 25);
                document.getElementById('live').innerHTML = liveRows.join('');
                if (d.decision === 'manual_review') loadReviews();
            };
        }

        loadReviews();
        setInterval(loadReviews, 15000);
        connect();
    </script>
</body>
</html>`

// reviewDashboardHandler serves the analyst review queue page.
func reviewDashboardHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(reviewDashboardHTML))
}
