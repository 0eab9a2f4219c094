// Package actions implements the transform actions build scripts are made of.
//
// File actions:
//
//	render               replace each HTML page with its rendered template
//	strip-scripts        delete script files; drop <script> and [data-js-required] from pages
//	rewrite-mount-links  prefix root-relative href/src values with the variant mount
//
// Project actions:
//
//	noscript-fallback    prune generated dirs, delete scripts, strip every page and
//	                     replace pages that opt out of the variant with the fallback page
//	delete-scripts       delete every script file
//	prune-dirs           remove the configured generated directories
package actions
