// Package performer splits raw venue event titles into a headliner and openers.
//
// Titles are run through an ordered cascade of separator strategies ("with",
// "feat.", "/", ",", "+", ":", "presents", dash before a quoted tour name,
// trailing "Tour"). The first strategy that matches decides the split. Every
// resulting name is cleaned of tour and year suffixes and checked against the
// literal corrections table from the rules package.
package performer
