// Package influxdb mirrors stored readings and alerts into InfluxDB.
//
// SQLite remains the system of record; the mirror exists so long-range
// dashboards can query time series without scanning the relational store.
// Points are batched by the client library and flushed on Close.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror off; ingest continues without it
//	}
package influxdb
