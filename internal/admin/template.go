package admin

// dashboardTemplate takes: flash HTML, feed rows, CSRF token, client rows.
const dashboardTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Admin - Feeds</title>
    <style>
        * { box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            margin: 0;
            padding: 2rem;
            background: #fafafa;
            color: #1a1a1a;
        }
        .container { max-width: 1100px; margin: 0 auto; }
        h1 { margin: 0 0 0.5rem 0; font-size: 1.5rem; font-weight: 600; }
        h2 { margin: 2rem 0 0.75rem 0; font-size: 1.125rem; font-weight: 600; }
        .subtitle { color: #666; margin: 0 0 1.5rem 0; font-size: 0.875rem; }
        .flash {
            padding: 0.75rem 1rem;
            border-radius: 4px;
            margin-bottom: 1rem;
            font-size: 0.875rem;
        }
        .flash-success { background: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
        .flash-error { background: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
        table {
            width: 100%%;
            border-collapse: collapse;
            background: #fff;
            border-radius: 6px;
            overflow: hidden;
            box-shadow: 0 1px 3px rgba(0,0,0,0.08);
        }
        th, td { padding: 0.75rem 1rem; text-align: left; border-bottom: 1px solid #eee; }
        th {
            background: #f8f8f8;
            font-weight: 600;
            font-size: 0.75rem;
            text-transform: uppercase;
            letter-spacing: 0.05em;
            color: #666;
        }
        td { font-size: 0.875rem; }
        tr:last-child td { border-bottom: none; }
        tr:hover { background: #fafafa; }
        .actions { display: flex; gap: 0.5rem; align-items: center; }
        .inline-form { display: inline; margin: 0; }
        .btn {
            padding: 0.375rem 0.75rem;
            border: 1px solid #e5e5e5;
            border-radius: 4px;
            font-size: 0.75rem;
            font-weight: 500;
            cursor: pointer;
            background: #fff;
        }
        .btn:hover { border-color: #ccc; }
        .btn-primary { background: #007bff; color: #fff; border-color: #007bff; }
        .btn-danger { background: #fff; color: #dc3545; border-color: #dc3545; }
        .btn-danger:hover { background: #dc3545; color: #fff; }
        .new-feed { background: #fff; padding: 1rem; border-radius: 6px; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
        .new-feed input {
            padding: 0.375rem 0.5rem;
            border: 1px solid #e5e5e5;
            border-radius: 4px;
            font-size: 0.875rem;
            margin-right: 0.5rem;
        }
        code { font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Feeds</h1>
        <p class="subtitle">Manage published feeds and review client traffic.</p>
        %s
        <table>
            <thead>
                <tr><th>Slug</th><th>Title</th><th>Author</th><th>Created</th><th></th></tr>
            </thead>
            <tbody>%s</tbody>
        </table>

        <h2>New feed</h2>
        <form method="POST" action="/admin/feeds" class="new-feed">
            <input type="hidden" name="gorilla.csrf.Token" value="%s">
            <input type="text" name="slug" placeholder="slug" required>
            <input type="text" name="title" placeholder="Title" required>
            <input type="text" name="author" placeholder="Author">
            <input type="text" name="link" placeholder="https://...">
            <button type="submit" class="btn btn-primary">Create</button>
        </form>

        <h2>Top clients (24h)</h2>
        <table>
            <thead>
                <tr><th>Fingerprint</th><th>Client</th><th>IP</th><th>Requests</th><th>Errors</th></tr>
            </thead>
            <tbody>%s</tbody>
        </table>
    </div>
</body>
</html>`
