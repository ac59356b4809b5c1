/*

Process of diffing a pass dump

Pass Dump Text ->
	dump.PrefixEnd, irfilter ->
Filtered Text ->
	marker.Classify, dump.Parse ->
Per Function Dumps (dump) ->
	chain.Sequence ->
Frozen Snapshot Chains (chain) ->
	textdiff.DiffChain ->
Pass Diffs (textdiff) ->
	render.Filter, render.Append ->
Unified Diff Text

*/
package passdump
