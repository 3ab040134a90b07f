package devserver

// Paths served by the development server.
const (
	ClientPath = "/@client"
	HotPath    = "/@hmr"
	ModulePath = "/@id/"
)

// hotPrelude is prepended to every served module so it can reach the hot
// channel through import.meta.hot.
const hotPrelude = "import.meta.hot = window.__hostHot;\n"

// clientScript connects a page to the hot channel. It installs stylesheet
// modules, re-imports updated modules and forwards custom events.
const clientScript = `const protocol = location.protocol === "https:" ? "wss" : "ws";
const socket = new WebSocket(protocol + "://" + location.host + "` + HotPath + `");
const styles = new Map();
const pending = [];

window.__hostUpdateStyle = (id, css) => {
  let el = styles.get(id);
  if (!el) {
    el = document.createElement("style");
    el.dataset.id = id;
    document.head.appendChild(el);
    styles.set(id, el);
  }
  el.textContent = css;
};

window.__hostHot = {
  send(event, data) {
    const msg = JSON.stringify({ type: "custom", event, data });
    if (socket.readyState === WebSocket.OPEN) {
      socket.send(msg);
    } else {
      pending.push(msg);
    }
  },
};

socket.addEventListener("open", () => {
  for (const msg of pending.splice(0)) socket.send(msg);
});

socket.addEventListener("message", async ({ data }) => {
  const payload = JSON.parse(data);
  switch (payload.type) {
    case "update":
      for (const u of payload.updates) {
        await import(u.acceptedPath + "?t=" + u.timestamp);
      }
      break;
    case "full-reload":
      location.reload();
      break;
  }
});
`
