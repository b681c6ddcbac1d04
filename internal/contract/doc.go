// Package contract is the declarative model of the application under test:
// its routes, the fields each route's form carries, the validation rules and
// messages, and the success and access-denied indicators.
//
// # Contract Format
//
// Contracts are written in CUE and unified with an embedded schema that
// fills in the observed defaults:
//
//	contract: {
//	    name: "react"
//	    accounts: [{email: "name@mail.com", password: "password"}]
//	    routes: {
//	        login: {
//	            path:        "/"
//	            submit:      "#login"
//	            credentials: true
//	            success: path: "/distance-to-sun"
//	            fields: [
//	                {id: "email", selector: "#email", type: "email"},
//	                {id: "password", selector: "#password", type: "password"},
//	            ]
//	        }
//	    }
//	}
//
// Route declaration order and field declaration order are preserved. Fields
// are filled in declaration order.
//
// # Error Surfaces
//
// A route reports validation errors either through native dialogs
// (surface: kind: "dialog") or through a DOM element
// (surface: {kind: "element", selector: "[role=alert]"}). The runner reads
// whichever the route declares and never branches on the kind itself.
package contract
