// Package comm provides a fixed-size group of cooperating ranks with the
// collective operations the particle index is built from: barrier, min/max
// and sum reductions, allgather, variable all-to-all exchange and broadcast.
//
// Ranks run as goroutines inside one process, launched by Run. Collectives
// follow the usual SPMD contract: every rank of the group must call the
// same collective in the same order with compatible arguments. The contract
// is not checked across ranks; a rank that skips a collective stalls the
// whole group. There is no cancellation or timeout inside a collective.
//
// A collective also acts as a memory fence. Writes a rank performs before
// entering a collective are visible to every rank after the collective
// returns.
//
// # Usage
//
//	err := comm.Run(ctx, 4, func(ctx context.Context, c *comm.Comm) error {
//		lo := comm.AllreduceMin(c, local)
//		c.Barrier()
//		return nil
//	})
package comm
