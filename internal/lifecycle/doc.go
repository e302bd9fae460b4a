// Package lifecycle creates and destroys areas, devices and bins while
// keeping the ownership links between them consistent.
//
// An area owns a set of device ids, a device owns a list of bin ids, and
// every bin and device carries a back reference to its owner. The
// Coordinator is the only writer of those links.
//
// Multi-entity operations are not transactional. Each step is its own
// statement, and a cascading delete keeps going after a failed step,
// reporting what it removed and what failed in a CascadeResult. Readers
// running concurrently with a delete may briefly see a device without its
// bins or bins without their device.
package lifecycle
