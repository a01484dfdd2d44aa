// Package capture buffers network responses observed while browsing.
//
// The browsing layer pushes every admitted response into a Ring; the
// cascade drains it with SnapshotAndClear after each navigation. Bodies
// are also mirrored to disk for later debugging.
package capture
