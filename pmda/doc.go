// Package pmda is a client for the data-driven web services of a CA
// Performance Management data aggregator.
//
// Resources are addressed by service path and ID, and travel as
// dynamic models:
//
//	client, err := pmda.New(pmda.Config{Host: "pmda01", Username: "admin", Password: pw})
//	if err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	expr := filter.Must(filter.Compare("ManageableDevice.SystemName", filter.OpEndsWith, "_router"))
//	it := client.FilteredList(ctx, pmda.ServiceManageableDevices, expr)
//	for {
//		m, ok, err := it.Next(ctx)
//		if err != nil || !ok {
//			break
//		}
//		fmt.Println(m)
//	}
//
// Every call carries an X-Request-ID, opens a "pmda.<operation>" span and
// is logged through the logger package. Responses whose content type does
// not match the configured wire fail with INFRASTRUCTURE_ERROR; missing
// resources fail with NOT_FOUND and keep the transport error as cause.
package pmda
