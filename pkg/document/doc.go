// Package document is the HTML document resources are loaded into.
//
// Head keeps a golang.org/x/net/html tree and appends one element per
// loaded resource to its head, in the order the loader delivers them:
//
//   - InsertExecutable appends <script>content</script>
//   - InsertStyle appends <style type="text/css" media="screen, projection">
//   - Link appends <script src> or <link rel="stylesheet" href> and blocks
//     until the linked URL has been requested, when a Prober is configured
//
// The rendered page is what `cachescript load` prints and what the serve
// command returns.
package document
