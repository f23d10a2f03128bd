/*
Package metrics provides Prometheus metrics collection and exposition for
the relay.

Metrics are defined and registered with the default Prometheus registry
at package init and exposed over HTTP for scraping.

# Metrics Catalog

Storage:

  - nostrd_events_appended_total (Counter)
  - nostrd_events_rejected_total{reason} (Counter)
  - nostrd_events_deleted_total (Counter)
  - nostrd_migration_level (Gauge) — sampled by Collector every 15s
  - nostrd_append_duration_seconds (Histogram)
  - nostrd_scan_duration_seconds{index} (Histogram) — index is one of
    time, author, tag, id

Relay transport:

  - nostrd_connections_active (Gauge)
  - nostrd_subscriptions_active (Gauge)
  - nostrd_ws_messages_total{type} (Counter) — type is EVENT, REQ, or CLOSE

Blossom:

  - nostrd_blossom_blobs_total (Gauge)
  - nostrd_blossom_bytes_total (Gauge)

# Usage

	timer := metrics.NewTimer()
	offset, err := store.Append(event)
	timer.ObserveDuration(metrics.AppendDuration)

	metrics.WSMessagesTotal.WithLabelValues("EVENT").Inc()

# See Also

  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
