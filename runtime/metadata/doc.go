// Package metadata captures a built metamodel as a JSON-serializable
// snapshot for tools that run outside the process that built it.
//
// # Overview
//
// A snapshot lists every type of a published metamodel with its logical
// id, capabilities, members and references, plus the dependency graph
// between types. Snapshots are produced from a published cache:
//
//	meta, err := metadata.FromCache(c, report.BuildID)
//	if err != nil {
//		return err // cache.ErrNotInitialized or cache.ErrBuildFailed
//	}
//	data, err := metadata.Marshal(meta)
//
// A tool loads the snapshot back into the package registry and queries it
// through pre-computed indexes:
//
//	if err := metadata.RegisterMetadata(data); err != nil {
//		return err
//	}
//	order, err := metadata.QueryType("sales.Order")
//	deps, err := metadata.QueryDependencies("sales.Order", metadata.DependencyOptions{Depth: 1})
//
// # Example JSON Output
//
//	{
//	  "version": "1.0.0",
//	  "generated": "2026-10-17T09:00:00Z",
//	  "build_id": "4b7d7a1e-0c1f-4c55-9a57-2f0b8f7ac6a1",
//	  "types": [
//	    {
//	      "type": "domain.Order",
//	      "logical_id": "sales.Order",
//	      "display_name": "Order",
//	      "state": "indexed",
//	      "capabilities": [
//	        {"kind": "logical_type_name", "value": "sales.Order", "installed_by": "logical-type-name"}
//	      ],
//	      "members": [
//	        {"name": "Customer", "kind": "property", "type": "*domain.Customer", "capabilities": []}
//	      ],
//	      "references": ["crm.Customer"]
//	    }
//	  ],
//	  "dependencies": {
//	    "nodes": {"sales.Order": {"id": "sales.Order", "type": "domain.Order", "name": "Order"}},
//	    "edges": [{"from": "sales.Order", "to": "crm.Customer", "relationship": "property", "member": "Customer", "weight": 1}]
//	  }
//	}
//
// # Thread Safety
//
// Snapshots are plain values. The registry is safe for concurrent readers
// once RegisterMetadata has returned.
package metadata
