// Package injector deploys a cached release to a remote host.
//
// An injection verifies that both archives of the selected version are in the
// local cache, stages them on the target, and runs the provisioning Plan as
// one shell script. The plan creates the server directory, unpacks both
// archives, runs the runtime probe and finally writes the "0" sentinel that
// tells the VS Code client the server is ready. A failed probe leaves the
// archives staged and no sentinel behind.
package injector
