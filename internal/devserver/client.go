package devserver

import (
	"fmt"
	"html/template"

	"github.com/alfycore/veko/internal/constants"
)

// clientScript is the reconnect agent shipped to every rendered page.
// It holds one socket to the live reload listener, retries a bounded
// number of times after a disconnect, and maps each frame tag to a
// page action. The reload delay gives the server time to finish
// writing before the browser re-requests the page.
const clientScript = `(function () {
  'use strict';

  var MAX_RETRIES = %d;
  var RETRY_DELAY = %d;
  var RELOAD_DELAY = %d;

  var retries = 0;
  var prefetched = {};

  function connect() {
    var proto = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(proto + '//' + window.location.hostname + ':%d' + '%s');

    ws.onopen = function () {
      retries = 0;
      console.log('[veko] live reload connected');
    };

    ws.onmessage = function (event) {
      var msg;
      try {
        msg = JSON.parse(event.data);
      } catch (e) {
        return;
      }
      dispatch(msg);
    };

    ws.onclose = function () {
      if (retries >= MAX_RETRIES) {
        return;
      }
      retries++;
      setTimeout(connect, RETRY_DELAY);
    };

    ws.onerror = function () {
      ws.close();
    };
  }

  function dispatch(msg) {
    switch (msg.type) {
      case 'connected':
        break;
      case 'reload':
      case 'view-reload':
      case 'layout-reload':
        setTimeout(function () { window.location.reload(); }, RELOAD_DELAY);
        break;
      case 'route-reload':
        if (window.location.pathname === msg.route) {
          setTimeout(function () { window.location.reload(); }, RELOAD_DELAY);
        }
        break;
      case 'routes':
        if (msg.config && msg.config.enabled) {
          setTimeout(function () { prefetch(msg.routes || []); },
            msg.config.prefetchDelay || 0);
        }
        break;
      case 'error':
        console.error('[veko] server error:', msg.message);
        if (msg.stack) {
          console.error(msg.stack);
        }
        break;
    }
  }

  function prefetch(routes) {
    routes.forEach(function (route) {
      if (prefetched[route] || route === window.location.pathname) {
        return;
      }
      prefetched[route] = true;
      var link = document.createElement('link');
      link.rel = 'prefetch';
      link.href = route;
      document.head.appendChild(link);
    });
  }

  connect();
})();
`

// ClientScript renders the agent bound to the negotiated listener port.
func ClientScript(wsPort int) string {
	return fmt.Sprintf(clientScript,
		constants.ClientMaxRetries,
		constants.ClientRetryDelay.Milliseconds(),
		constants.ClientReloadDelay.Milliseconds(),
		wsPort,
		constants.PathWebSocket)
}

// InjectSnippet is the tag appended to rendered pages so the browser
// loads the agent.
func InjectSnippet() template.HTML {
	return template.HTML(fmt.Sprintf(`<script src=%q defer></script>`, constants.PathClientJS))
}
