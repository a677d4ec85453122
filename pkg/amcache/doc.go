/*
Package amcache reconstructs program and file execution evidence from a
Windows Amcache.hve registry hive.

# Quick Start

	res, err := amcache.Reconstruct(`C:\cases\42\Amcache.hve`, nil)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(res.Generation, res.ProgramCount(), res.TotalFileRecords())

# Generations

Two schemas exist. Windows 7 and 8 write the legacy one: Root\Programs and
Root\File with numeric value names. Windows 8.1 and later write the modern
one: Root\InventoryApplication, Root\InventoryApplicationFile and the device
and driver inventories. Result.Generation says which of Result.Legacy and
Result.Modern is populated.

# Dirty Hives

A hive whose two header sequence numbers differ was not flushed completely.
Transaction logs named <hive>.LOG, <hive>.LOG1 and <hive>.LOG2 next to it are
replayed into a private copy before decoding. Without logs the parse fails
with types.ErrDirtyHiveNoLogs unless Options.AllowDirtyWithoutLogs is set:

	res, err := amcache.Reconstruct(path, &amcache.Options{AllowDirtyWithoutLogs: true})

# Error Handling

Hive-level failures are returned as errors and match the sentinels in
pkg/types with errors.Is. Problems confined to one record never fail the
parse: the record is skipped and an Issue is added to Result.Report.
*/
package amcache
