package handlers

import "net/http"

// FormPage serves the static submission form.
func (a *App) FormPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(formHTML))
}

const formHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Batch Image Generation</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; padding: 0 1rem; }
label { display: block; margin-top: 1rem; font-weight: bold; }
input, textarea, select { width: 100%; padding: 0.4rem; margin-top: 0.3rem; }
button { margin-top: 1.5rem; padding: 0.6rem 1.5rem; }
#result { margin-top: 1.5rem; white-space: pre-wrap; font-family: monospace; }
</style>
</head>
<body>
<h1>Batch Image Generation</h1>
<form id="batch-form">
  <label>Prompt <textarea name="prompt" rows="3" required></textarea></label>
  <label>Subject image URL <input name="subjectUrl" type="url"></label>
  <label>Reference image URLs (comma-separated) <input name="referenceUrls"></label>
  <label>Width <input name="width" type="number" value="1024"></label>
  <label>Height <input name="height" type="number" value="1024"></label>
  <label>Count <input name="count" type="number" value="2" min="1"></label>
  <label>Provider
    <select name="provider">
      <option value="wavespeed">WaveSpeed</option>
      <option value="fal">Fal</option>
    </select>
  </label>
  <button type="submit">Start batch</button>
</form>
<div id="result"></div>
<script>
document.getElementById('batch-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const resp = await fetch('/api/start-batch', {
    method: 'POST',
    body: new URLSearchParams(new FormData(e.target)),
  });
  document.getElementById('result').textContent = await resp.text();
});
</script>
</body>
</html>
`
